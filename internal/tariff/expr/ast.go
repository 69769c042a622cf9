package expr

// Node is a parsed expression tree node. The set of implementations below
// is closed: evaluation and validation operate on these kinds only and
// reject anything else structurally.
type Node interface {
	exprNode()
}

// NumberNode is a numeric literal.
type NumberNode struct {
	Value float64
}

// NameNode is a variable reference.
type NameNode struct {
	Name string
}

// UnaryNode applies unary "+" or "-".
type UnaryNode struct {
	Op      string
	Operand Node
}

// BinaryNode applies one of "+ - * / % **".
type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
}

// CompareNode is a chained comparison: Left op0 Comparators[0] op1 ... .
// The chain holds only when every pairwise comparison holds.
type CompareNode struct {
	Left        Node
	Ops         []string
	Comparators []Node
}

// BoolNode combines operands with "and" (all) or "or" (any).
type BoolNode struct {
	Op     string
	Values []Node
}

// CallNode is a call to a whitelisted function by name.
type CallNode struct {
	Func string
	Args []Node
}

// CondNode is the conditional "Body if Test else OrElse".
type CondNode struct {
	Test   Node
	Body   Node
	OrElse Node
}

func (*NumberNode) exprNode()  {}
func (*NameNode) exprNode()    {}
func (*UnaryNode) exprNode()   {}
func (*BinaryNode) exprNode()  {}
func (*CompareNode) exprNode() {}
func (*BoolNode) exprNode()    {}
func (*CallNode) exprNode()    {}
func (*CondNode) exprNode()    {}
