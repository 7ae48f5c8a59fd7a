// Package einsum parses a bracketed einsum expression into a binary
// contraction tree and lowers each node to a tensorop.TensorOperation,
// grounded on src/einsum/EinsumNode.h and src/einsum/EinsumTree.h/.cpp.
package einsum

import (
	"github.com/arm64tensor/mlc/tensorop"
)

// Node is one node of an einsum contraction tree: either a leaf
// referencing a caller-supplied input tensor by its expression string,
// or an internal node owning a TensorOperation that combines its
// children into a freshly allocated output buffer.
//
// DimensionIDs is populated identically to OutputDimensionIDs: the
// reference implementation's EinsumNode constructor only ever sets the
// ids parsed from the node's own bracket expression, and its tree
// builder only ever reads that same field back under the
// "dimension_ids" name, so the two names denote one set of ids for a
// given node.
type Node struct {
	OutputDimensionIDs []int64
	DimensionIDs       []int64
	TensorExpression   string

	Left, Right *Node

	Dtype         tensorop.Dtype
	PrimFirstTouch tensorop.Ptype
	PrimMain      tensorop.Ptype
	PrimLastTouch tensorop.Ptype

	DimTypes   []tensorop.DimRole
	ExecTypes  []tensorop.ExecMode
	DimSizes   []int64
	StridesIn0 []int64
	StridesIn1 []int64
	StridesOut []int64

	TensorSize int64

	Operation *tensorop.TensorOperation

	// TensorOut is nil for leaf nodes, which alias the caller-supplied
	// tensor for TensorExpression instead of owning a buffer.
	TensorOut []float32

	ComputationalOperations float64
}

// NumChildren mirrors EinsumNode::get_number_of_children.
func (n *Node) NumChildren() int {
	c := 0
	if n.Left != nil {
		c++
	}
	if n.Right != nil {
		c++
	}
	return c
}
