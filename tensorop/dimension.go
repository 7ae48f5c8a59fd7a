// Package tensorop implements the dimension intermediate representation,
// the loop optimizer, and the tensor-operation driver that lowers an
// optimized loop nest into generated GEMM/BRGEMM and unary kernels.
// Grounded on include/mlc/ir/Dimension.h, src/ir/Optimizer.h, and
// src/TensorOperation.h/.cpp.
package tensorop

import "fmt"

// DimRole is the role a loop dimension plays in the tensor contraction,
// mirroring dim_t from types.h.
type DimRole int

const (
	RoleC DimRole = iota // unary (identity-style) operand dimension
	RoleM
	RoleN
	RoleK
	RoleUndefined DimRole = 99
)

func (r DimRole) String() string {
	switch r {
	case RoleC:
		return "c"
	case RoleM:
		return "m"
	case RoleN:
		return "n"
	case RoleK:
		return "k"
	default:
		return "undefined"
	}
}

// ExecMode is how a loop dimension is driven at execution time,
// mirroring exec_t from types.h.
type ExecMode int

const (
	ExecSeq ExecMode = iota
	ExecPrim
	ExecShared
	ExecUndefined ExecMode = 99
)

func (e ExecMode) String() string {
	switch e {
	case ExecSeq:
		return "seq"
	case ExecPrim:
		return "prim"
	case ExecShared:
		return "shared"
	default:
		return "undefined"
	}
}

// Ptype selects the primitive a tensor operation's first-touch, main,
// or last-touch kernel runs, mirroring ptype_t from types.h.
type Ptype int

const (
	PtypeNone Ptype = iota
	PtypeZero
	PtypeIdentity
	PtypeRelu
	PtypeGemm
	PtypeBrgemm
	PtypeSquare
	PtypeReciprocal
	PtypeAdd
	PtypeSub
	PtypeMul
	PtypeDiv
	PtypeMin
	PtypeMax
)

func (p Ptype) String() string {
	switch p {
	case PtypeNone:
		return "none"
	case PtypeZero:
		return "zero"
	case PtypeIdentity:
		return "identity"
	case PtypeRelu:
		return "relu"
	case PtypeGemm:
		return "gemm"
	case PtypeBrgemm:
		return "brgemm"
	case PtypeSquare:
		return "square"
	case PtypeReciprocal:
		return "reciprocal"
	case PtypeAdd:
		return "add"
	case PtypeSub:
		return "sub"
	case PtypeMul:
		return "mul"
	case PtypeDiv:
		return "div"
	case PtypeMin:
		return "min"
	case PtypeMax:
		return "max"
	default:
		return "undefined"
	}
}

// Dimension is one loop dimension of a tensor operation: its role,
// execution mode, size, and its stride in each of the up-to-three
// tensors it touches. Strides are element counts, not bytes.
type Dimension struct {
	Role      DimRole
	ExecType  ExecMode
	Size      int64
	StrideIn0 int64
	StrideIn1 int64
	StrideOut int64
}

// NewDimension constructs a Dimension, rejecting a non-positive size the
// way the reference implementation's constructor throws.
func NewDimension(role DimRole, execType ExecMode, size, strideIn0, strideIn1, strideOut int64) (Dimension, error) {
	if size <= 0 {
		return Dimension{}, fmt.Errorf("tensorop: dimension size must be greater than 0, got %d", size)
	}
	return Dimension{
		Role:      role,
		ExecType:  execType,
		Size:      size,
		StrideIn0: strideIn0,
		StrideIn1: strideIn1,
		StrideOut: strideOut,
	}, nil
}
