package srclang

import "fmt"

// Kind is a tag in the small type lattice: int, float, bool, string, array,
// procedure. Arrays may not nest, so Elem on an array Type is never itself
// an array.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
	KindProc
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindProc:
		return "procedure"
	default:
		return "?"
	}
}

// Type is the single representation for every entry in the type lattice:
// int, float, bool, string, array(T, N), and procedure(param-types ->
// return).
type Type struct {
	Kind   Kind
	Elem   *Type  // non-nil only when Kind == KindArray
	Length int    // valid only when Kind == KindArray
	Params []Type // valid only when Kind == KindProc
	Return *Type  // valid only when Kind == KindProc
}

func (t Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("array(%s, %d)", t.Elem, t.Length)
	case KindProc:
		return fmt.Sprintf("procedure(%v -> %s)", t.Params, t.Return)
	default:
		return t.Kind.String()
	}
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == KindArray {
		return t.Length == o.Length && t.Elem != nil && o.Elem != nil && t.Elem.Equal(*o.Elem)
	}
	return true
}

func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }

var (
	IntType    = Type{Kind: KindInt}
	FloatType  = Type{Kind: KindFloat}
	BoolType   = Type{Kind: KindBool}
	StringType = Type{Kind: KindString}
	VoidType   = Type{Kind: KindVoid}
)

// ---- Declarations ----

// Decl is implemented by every top-level or local declaration node.
type Decl interface {
	declNode()
}

// VariableDecl represents `[global] <type> name [ '[' N ']' ] ;`.
type VariableDecl struct {
	Name      string
	TypeTok   TokenType // INTTYPE, FLOATTYPE, BOOLTYPE, or STRINGTYPE
	ArraySize *int      // non-nil for an array declaration
	IsGlobal  bool
	Line      int
}

func (*VariableDecl) declNode() {}

// DeclaredType returns the Type denoted by the declaration's type mark and
// optional array size.
func (d *VariableDecl) DeclaredType() Type {
	base := scalarTypeOf(d.TypeTok)
	if d.ArraySize == nil {
		return base
	}
	return Type{Kind: KindArray, Elem: &base, Length: *d.ArraySize}
}

func scalarTypeOf(tt TokenType) Type {
	switch tt {
	case INTTYPE:
		return IntType
	case FLOATTYPE:
		return FloatType
	case BOOLTYPE:
		return BoolType
	case STRINGTYPE:
		return StringType
	default:
		return Type{}
	}
}

// Param is a procedure parameter: a variable declaration plus a direction.
type Param struct {
	Decl      *VariableDecl
	Direction TokenType // IN or OUT
}

// ProcedureDecl represents `[global] procedure name(params) decls begin body end procedure`.
type ProcedureDecl struct {
	Name     string
	Params   []Param
	Decls    []Decl
	Body     []Stmt
	IsGlobal bool
	Line     int
}

func (*ProcedureDecl) declNode() {}

// ProgramDecl is the root of the tree.
type ProgramDecl struct {
	Name  string
	Decls []Decl
	Body  []Stmt
	Line  int
}

// ---- Destinations (assignment/out-argument targets) ----

// Dest names an l-value: a bare identifier or an indexed identifier.
type Dest struct {
	Name  string
	Index Expr // nil for a bare name
	Line  int
}

// ---- Statements ----

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
}

// Assign represents `target := value ;`. TargetType is filled in by the
// checker (it is the target's declared type, or its element type when
// Target.Index is set) so the code generator never needs to re-resolve the
// destination through a symbol table that may already be out of scope.
type Assign struct {
	Target     *Dest
	Value      Expr
	TargetType Type
	Line       int
}

func (*Assign) stmtNode() {}

// If represents `if (cond) then thenBody [else elseBody] end if ;`.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if no else clause
	Line int
}

func (*If) stmtNode() {}

// For represents `for (init ; cond) body end for ;`.
type For struct {
	Init *Assign
	Cond Expr
	Body []Stmt
	Line int
}

func (*For) stmtNode() {}

// Return represents `return ;`. It may appear in a procedure body or in the
// program body.
type Return struct {
	Line int
}

func (*Return) stmtNode() {}

// CallStmt evaluates a Call for its side effects and discards its value.
type CallStmt struct {
	Call *Call
	Line int
}

func (*CallStmt) stmtNode() {}

// ---- Expressions ----

// Expr is implemented by every node that produces a value. Every Expr
// carries its own inferred Type field, populated by the type checker; it is
// the zero Type (KindVoid) before checking runs.
type Expr interface {
	exprNode()
	exprLine() int
	exprType() Type
	setType(Type)
}

type exprBase struct {
	Line int
	Type Type
}

func (e *exprBase) exprLine() int  { return e.Line }
func (e *exprBase) exprType() Type { return e.Type }
func (e *exprBase) setType(t Type) { e.Type = t }

// Binary represents `lhs op rhs`. Broadcast is set by the checker when one
// operand is an array and the other a compatible scalar (or both arrays of
// equal length); the emitter lowers a Broadcast node to a loop.
type Binary struct {
	exprBase
	Op        TokenType
	Lhs, Rhs  Expr
	Broadcast bool
}

func (*Binary) exprNode() {}

// Unary represents `op e`, where op is MINUS or NOT.
type Unary struct {
	exprBase
	Op TokenType
	E  Expr
}

func (*Unary) exprNode() {}

// Index represents `name[e]`.
type Index struct {
	exprBase
	Name string
	E    Expr
}

func (*Index) exprNode() {}

// Ref represents a bare read of a named variable.
type Ref struct {
	exprBase
	Name string
}

func (*Ref) exprNode() {}

// LitKind distinguishes which field of Lit holds the literal's value.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitString
)

// Lit is a literal constant: NUMBER, STRINGLIT, true, or false.
type Lit struct {
	exprBase
	LitKind  LitKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string
}

func (*Lit) exprNode() {}

// ImplicitCast wraps E in a compiler-inserted coercion from From to To.
type ImplicitCast struct {
	exprBase
	E    Expr
	From Type
	To   Type
}

func (*ImplicitCast) exprNode() {}

// Call represents `callee(args)`, usable both as a statement (via CallStmt,
// for side-effecting built-ins like putInteger) and as an expression (for
// built-ins and procedures that return a value, like getInteger).
type Call struct {
	exprBase
	Callee string
	Args   []Expr
}

func (*Call) exprNode() {}
