package tensorop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimensionRejectsNonPositiveSize(t *testing.T) {
	_, err := NewDimension(RoleM, ExecSeq, 0, 1, 1, 1)
	assert.Error(t, err, "size=0 should be rejected")

	_, err = NewDimension(RoleM, ExecSeq, -1, 1, 1, 1)
	assert.Error(t, err, "negative size should be rejected")
}

func TestNewDimensionAccepted(t *testing.T) {
	d, err := NewDimension(RoleK, ExecPrim, 32, 1, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, Dimension{Role: RoleK, ExecType: ExecPrim, Size: 32, StrideIn0: 1, StrideIn1: 4, StrideOut: 0}, d)
}

func TestDimRoleString(t *testing.T) {
	tests := []struct {
		role DimRole
		want string
	}{
		{RoleC, "c"}, {RoleM, "m"}, {RoleN, "n"}, {RoleK, "k"}, {RoleUndefined, "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.String())
		})
	}
}

func TestExecModeString(t *testing.T) {
	tests := []struct {
		mode ExecMode
		want string
	}{
		{ExecSeq, "seq"}, {ExecPrim, "prim"}, {ExecShared, "shared"}, {ExecUndefined, "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.String())
		})
	}
}

func TestPtypeString(t *testing.T) {
	tests := []struct {
		pt   Ptype
		want string
	}{
		{PtypeNone, "none"}, {PtypeIdentity, "identity"}, {PtypeGemm, "gemm"},
		{PtypeBrgemm, "brgemm"}, {PtypeAdd, "add"}, {PtypeMax, "max"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pt.String())
		})
	}
}
