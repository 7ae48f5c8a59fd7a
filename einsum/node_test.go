package einsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumChildren(t *testing.T) {
	leaf := &Node{}
	assert.Equal(t, 0, leaf.NumChildren())

	unary := &Node{Left: &Node{}}
	assert.Equal(t, 1, unary.NumChildren())

	binary := &Node{Left: &Node{}, Right: &Node{}}
	assert.Equal(t, 2, binary.NumChildren())
}
