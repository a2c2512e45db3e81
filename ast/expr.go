package ast

// Name is an identifier reference.
type Name struct {
	ExprBase

	Id string
}

// Constant is a literal constant: integer, float, bool, string, or None.
// The value is the host parser's literal value.
type Constant struct {
	ExprBase

	Value interface{}
}

// Keyword is a keyword argument at a call site.
type Keyword struct {
	Name  string
	Value Expr
}

// Call represents a call expression.  Type calls such as `i32(x)` and
// subscripted type calls such as `array[i32, 5]()` are also calls whose
// function expression resolves to a type.
type Call struct {
	ExprBase

	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

// Attribute is an attribute access, eg. `effect.rng` or `s.field`.
type Attribute struct {
	ExprBase

	Value Expr
	Attr  string
}

// Subscript is a subscript expression, eg. `arr[i]` or the type subscript
// `array[i32, 5]`.
type Subscript struct {
	ExprBase

	Value   Expr
	Indices []Expr
}

// BinaryOp is a binary operator application.
type BinaryOp struct {
	ExprBase

	Op          string
	Left, Right Expr
}

// UnaryOp is a unary operator application.
type UnaryOp struct {
	ExprBase

	Op      string
	Operand Expr
}

// Compare is a comparison chain, eg. `a < b <= c`.
type Compare struct {
	ExprBase

	Left        Expr
	Ops         []string
	Comparators []Expr
}

// TupleExpr is a tuple display, used for multi-value yields and returns.
type TupleExpr struct {
	ExprBase

	Elems []Expr
}

// Lambda is a single-expression anonymous function.  For inlining it is
// treated as a function whose body is one implicit value-bearing return.
type Lambda struct {
	ExprBase

	Params []string
	Body   Expr
}

// Yield is a yield expression.  It only ever appears as the value of an
// expression statement inside a generator body.
type Yield struct {
	ExprBase

	Value Expr
}
