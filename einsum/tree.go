package einsum

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/arm64tensor/mlc/tensorop"
)

// Tree is a parsed, optimized, and lowered einsum contraction tree.
type Tree struct {
	Root *Node
}

// Parse builds a Tree from a bracketed einsum expression, grounded on
// EinsumTree::parse_einsum_expression/parse_einsum_expression_recursive.
// The grammar matches the reference implementation's own string
// handling rather than spec.md's bare-dims formal EBNF: the output
// dimension list after "->" is bracketed too, consistent with every
// worked example in spec.md's own prose (e.g. "[2,0],[1,2]->[1,0]").
func Parse(expr string) (*Tree, error) {
	root, err := ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

// ParseExpression validates the character set and parses a single
// (possibly nested) einsum expression into a node tree.
func ParseExpression(expr string) (*Node, error) {
	for _, c := range expr {
		if !(c == '[' || c == ']' || c == '-' || c == '>' || (c >= '0' && c <= '9') || c == ',') {
			return nil, fmt.Errorf("einsum: invalid character %q in expression %q", c, expr)
		}
	}
	return parseRecursive(expr)
}

func parseRecursive(expr string) (*Node, error) {
	if expr == "" {
		return nil, nil
	}

	output := expr
	var left, right *Node
	var err error

	arrowPos := strings.LastIndex(expr, "->")
	if arrowPos != -1 {
		inputs := expr[:arrowPos]
		rest := expr[arrowPos+2:]
		if len(rest) < 2 || rest[0] != '[' || rest[len(rest)-1] != ']' {
			return nil, fmt.Errorf("einsum: output dimension list must be bracketed in %q", expr)
		}
		output = rest[1 : len(rest)-1]

		splitPos := -1
		if len(inputs) > 0 && inputs[0] == '[' {
			depth := 0
			for i, c := range inputs {
				switch c {
				case '[':
					depth++
				case ']':
					depth--
				case ',':
					if depth == 0 {
						splitPos = i
					}
				}
				if splitPos != -1 {
					break
				}
			}
		}

		var leftExpr, rightExpr string
		if splitPos == -1 {
			if len(inputs) < 2 || inputs[0] != '[' || inputs[len(inputs)-1] != ']' {
				return nil, fmt.Errorf("einsum: malformed input group %q", inputs)
			}
			leftExpr = inputs[1 : len(inputs)-1]
		} else {
			leftExpr = inputs[1 : splitPos-1]
			rightExpr = inputs[splitPos+2 : len(inputs)-1]
		}

		left, err = parseRecursive(leftExpr)
		if err != nil {
			return nil, err
		}
		right, err = parseRecursive(rightExpr)
		if err != nil {
			return nil, err
		}
	}

	dims, err := parseDims(output)
	if err != nil {
		return nil, err
	}

	return &Node{
		OutputDimensionIDs: dims,
		DimensionIDs:       dims,
		TensorExpression:   output,
		Left:               left,
		Right:              right,
	}, nil
}

func parseDims(s string) ([]int64, error) {
	if s == "" {
		return nil, fmt.Errorf("einsum: empty dimension list")
	}
	parts := strings.Split(s, ",")
	dims := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("einsum: invalid dimension id %q: %w", p, err)
		}
		dims[i] = v
	}
	return dims, nil
}

// Initialize derives every node's per-loop IR, optimizes it, and lowers
// it to a tensorop.TensorOperation, from the root down, setting up each
// node before its children.
func (t *Tree) Initialize(dimensionSizes []int64, dtype tensorop.Dtype, threadTarget, maxKernelSize, minKernelSize int64) error {
	return InitializeNodes(t.Root, dimensionSizes, dtype, threadTarget, maxKernelSize, minKernelSize)
}

// InitializeNodes mirrors EinsumTree::initialize_einsum_nodes: gather
// and dedupe every dimension id used by this node or its children,
// classify each as M/N/K (or C for a single-child permutation node),
// derive row-major strides per child, run the optimizer, pick the main
// primitive from the resulting prim-exec-type count, and set up the
// node's TensorOperation, recursing into both children afterward.
func InitializeNodes(node *Node, dimensionSizes []int64, dtype tensorop.Dtype, threadTarget, maxKernelSize, minKernelSize int64) error {
	if node == nil {
		return nil
	}

	node.Dtype = dtype
	node.ComputationalOperations = 0

	node.TensorSize = 1
	for _, id := range node.DimensionIDs {
		node.TensorSize *= dimensionSizes[id]
	}

	if node.NumChildren() == 0 {
		return nil
	}

	dimIDs := append([]int64(nil), node.DimensionIDs...)
	dimSizes := make([]int64, len(dimIDs))
	for i, id := range dimIDs {
		dimSizes[i] = dimensionSizes[id]
	}
	if node.NumChildren() == 2 {
		for _, id := range node.Left.DimensionIDs {
			if !containsInt64(dimIDs, id) {
				dimIDs = append(dimIDs, id)
				dimSizes = append(dimSizes, dimensionSizes[id])
			}
		}
		for _, id := range node.Right.DimensionIDs {
			if !containsInt64(dimIDs, id) {
				dimIDs = append(dimIDs, id)
				dimSizes = append(dimSizes, dimensionSizes[id])
			}
		}
	}

	n := len(dimIDs)
	dimTypes := make([]tensorop.DimRole, n)
	execTypes := make([]tensorop.ExecMode, n)
	stridesIn0 := make([]int64, n)
	stridesIn1 := make([]int64, n)
	stridesOut := make([]int64, n)
	for i := range dimTypes {
		execTypes[i] = tensorop.ExecSeq
	}

	for i, id := range dimIDs {
		if node.NumChildren() == 2 {
			switch {
			case containsInt64(node.OutputDimensionIDs, id) && containsInt64(node.Left.DimensionIDs, id):
				dimTypes[i] = tensorop.RoleM
			case containsInt64(node.OutputDimensionIDs, id) && containsInt64(node.Right.DimensionIDs, id):
				dimTypes[i] = tensorop.RoleN
			default:
				dimTypes[i] = tensorop.RoleK
			}
		} else {
			dimTypes[i] = tensorop.RoleC
		}

		if node.Left != nil && containsInt64(node.Left.DimensionIDs, id) {
			stridesIn0[i] = rowMajorStride(node.Left.DimensionIDs, id, dimensionSizes)
		}
		if node.Right != nil && containsInt64(node.Right.DimensionIDs, id) {
			stridesIn1[i] = rowMajorStride(node.Right.DimensionIDs, id, dimensionSizes)
		}
		if containsInt64(node.OutputDimensionIDs, id) {
			stridesOut[i] = rowMajorStride(node.OutputDimensionIDs, id, dimensionSizes)
		}
	}

	tensorop.OptimizeSlices(&dimTypes, &execTypes, &dimSizes, &stridesIn0, &stridesIn1, &stridesOut,
		threadTarget, maxKernelSize, minKernelSize)

	primCount := 0
	for _, e := range execTypes {
		if e == tensorop.ExecPrim {
			primCount++
		}
	}

	var mainPtype tensorop.Ptype
	switch primCount {
	case 2:
		mainPtype = tensorop.PtypeIdentity
	case 3:
		mainPtype = tensorop.PtypeGemm
		node.ComputationalOperations = flopCount(dimSizes)
	case 4:
		mainPtype = tensorop.PtypeBrgemm
		node.ComputationalOperations = flopCount(dimSizes)
	default:
		return fmt.Errorf("einsum: node %q optimized to an unsupported prim-exec-type count %d", node.TensorExpression, primCount)
	}

	if node.Left != nil {
		node.ComputationalOperations += node.Left.ComputationalOperations
	}
	if node.Right != nil {
		node.ComputationalOperations += node.Right.ComputationalOperations
	}

	node.DimTypes = dimTypes
	node.ExecTypes = execTypes
	node.DimSizes = dimSizes
	node.StridesIn0 = stridesIn0
	node.StridesIn1 = stridesIn1
	node.StridesOut = stridesOut
	node.PrimMain = mainPtype

	node.Operation = &tensorop.TensorOperation{}
	if err := node.Operation.Setup(dtype, tensorop.PtypeNone, mainPtype, tensorop.PtypeNone,
		dimTypes, execTypes, dimSizes, stridesIn0, stridesIn1, stridesOut); err != nil {
		return fmt.Errorf("einsum: setting up node %q: %w", node.TensorExpression, err)
	}

	if err := InitializeNodes(node.Left, dimensionSizes, dtype, threadTarget, maxKernelSize, minKernelSize); err != nil {
		return err
	}
	return InitializeNodes(node.Right, dimensionSizes, dtype, threadTarget, maxKernelSize, minKernelSize)
}

func flopCount(dimSizes []int64) float64 {
	ops := 2.0
	for _, s := range dimSizes {
		ops *= float64(s)
	}
	return ops
}

// rowMajorStride treats ids as a row-major contiguous layout and
// returns the element stride of id within it.
func rowMajorStride(ids []int64, id int64, sizes []int64) int64 {
	idx := -1
	for i, v := range ids {
		if v == id {
			idx = i
			break
		}
	}
	stride := int64(1)
	for j := idx + 1; j < len(ids); j++ {
		stride *= sizes[ids[j]]
	}
	return stride
}

func containsInt64(s []int64, v int64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Execute runs a post-order walk over the tree, computing each child
// before its parent. Leaves alias the caller-supplied input tensor
// directly; internal nodes own a zeroed intermediate buffer that their
// TensorOperation writes into.
func (t *Tree) Execute(tensorInputs map[string][]float32) ([]float32, error) {
	return Execute(t.Root, tensorInputs)
}

func Execute(node *Node, tensorInputs map[string][]float32) ([]float32, error) {
	if node == nil {
		return nil, nil
	}

	if node.NumChildren() == 0 {
		in, ok := tensorInputs[node.TensorExpression]
		if !ok {
			return nil, fmt.Errorf("einsum: no input tensor found for leaf node %q", node.TensorExpression)
		}
		return in, nil
	}

	if node.TensorOut == nil {
		node.TensorOut = make([]float32, node.TensorSize)
	} else {
		for i := range node.TensorOut {
			node.TensorOut[i] = 0
		}
	}

	leftBuf, err := Execute(node.Left, tensorInputs)
	if err != nil {
		return nil, err
	}
	var rightBuf []float32
	if node.Right != nil {
		rightBuf, err = Execute(node.Right, tensorInputs)
		if err != nil {
			return nil, err
		}
	}

	var in0, in1, out unsafe.Pointer
	if len(leftBuf) > 0 {
		in0 = unsafe.Pointer(&leftBuf[0])
	}
	if len(rightBuf) > 0 {
		in1 = unsafe.Pointer(&rightBuf[0])
	}
	if len(node.TensorOut) > 0 {
		out = unsafe.Pointer(&node.TensorOut[0])
	}

	if err := node.Operation.Execute(in0, in1, out); err != nil {
		return nil, err
	}
	return node.TensorOut, nil
}

// String pretty-prints the tree, matching EinsumTree::to_string.
func (t *Tree) String() string {
	return nodeString(t.Root, 0)
}

func nodeString(node *Node, depth int) string {
	if node == nil {
		return ""
	}
	indent := strings.Repeat("  ", depth)
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s (%s)\n", indent, node.TensorExpression, node.PrimMain)
	if node.Left != nil {
		b.WriteString(nodeString(node.Left, depth+1))
	}
	if node.Right != nil {
		b.WriteString(nodeString(node.Right, depth+1))
	}
	return b.String()
}
