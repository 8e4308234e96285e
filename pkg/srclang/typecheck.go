package srclang

import (
	"fmt"

	"srcc/pkg/diagnostics"
)

// Checker is a single top-down walk that declares every name into the
// symbol table, infers a type for every expression bottom-up, and inserts a
// minimal ImplicitCast wherever operands disagree but a coercion in the
// table below applies. It aborts on the first semantic error.
type Checker struct {
	syms *SymbolTable
	file string
}

// Check type-checks prog and returns the populated symbol table, or the
// first semantic error encountered.
func Check(prog *ProgramDecl, file string) (*SymbolTable, error) {
	c := &Checker{syms: NewSymbolTable(), file: file}

	if err := c.declareTopLevel(prog.Decls); err != nil {
		return nil, err
	}
	for _, d := range prog.Decls {
		if pd, ok := d.(*ProcedureDecl); ok {
			if err := c.checkProcedure(pd); err != nil {
				return nil, err
			}
		}
	}
	if err := c.checkStmts(prog.Body); err != nil {
		return nil, err
	}
	return c.syms, nil
}

func (c *Checker) semErr(line int, format string, args ...any) error {
	return &diagnostics.Error{Kind: diagnostics.Semantic, File: c.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// declareTopLevel declares every program-body declaration (variable or
// procedure signature) before any procedure body is checked, so mutual
// recursion and forward calls between procedures resolve.
func (c *Checker) declareTopLevel(decls []Decl) error {
	for _, d := range decls {
		switch v := d.(type) {
		case *VariableDecl:
			sym := &Symbol{Name: v.Name, Kind: SymVar, VarType: v.DeclaredType(), Decl: v}
			if err := c.syms.Declare(v.Name, sym, v.IsGlobal); err != nil {
				return c.semErr(v.Line, "%s", err)
			}
		case *ProcedureDecl:
			sym := &Symbol{Name: v.Name, Kind: SymProc, Proc: c.signatureOf(v)}
			if err := c.syms.Declare(v.Name, sym, v.IsGlobal); err != nil {
				return c.semErr(v.Line, "%s", err)
			}
		}
	}
	return nil
}

func (c *Checker) signatureOf(pd *ProcedureDecl) *ProcSignature {
	sig := &ProcSignature{Return: VoidType}
	for _, param := range pd.Params {
		sig.Params = append(sig.Params, ParamSig{Type: param.Decl.DeclaredType(), Direction: param.Direction})
	}
	return sig
}

// checkProcedure enters a fresh scope, declares parameters and locals, then
// checks the body. The symbol table's data model supports only the root
// scope plus one active procedure scope, so a procedure declaring another
// procedure among its own declarations is rejected here even though the
// grammar's declarations() production is shared with the program level and
// would otherwise parse it.
func (c *Checker) checkProcedure(pd *ProcedureDecl) error {
	c.syms.EnterScope()
	defer c.syms.ExitScope()

	for _, param := range pd.Params {
		sym := &Symbol{Name: param.Decl.Name, Kind: SymVar, VarType: param.Decl.DeclaredType(), Decl: param.Decl}
		if err := c.syms.Declare(param.Decl.Name, sym, false); err != nil {
			return c.semErr(param.Decl.Line, "%s", err)
		}
	}
	for _, d := range pd.Decls {
		switch v := d.(type) {
		case *VariableDecl:
			sym := &Symbol{Name: v.Name, Kind: SymVar, VarType: v.DeclaredType(), Decl: v}
			if err := c.syms.Declare(v.Name, sym, v.IsGlobal); err != nil {
				return c.semErr(v.Line, "%s", err)
			}
		case *ProcedureDecl:
			return c.semErr(v.Line, "nested procedure declarations are not supported")
		}
	}
	return c.checkStmts(pd.Body)
}

// ---- Statements ----

func (c *Checker) checkStmts(stmts []Stmt) error {
	for _, s := range stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(s Stmt) error {
	switch st := s.(type) {
	case *Assign:
		return c.checkAssign(st)
	case *If:
		cond, err := c.checkExpr(st.Cond)
		if err != nil {
			return err
		}
		if cond.exprType().Kind != KindBool {
			return c.semErr(st.Line, "if condition must be bool, got %s", cond.exprType())
		}
		st.Cond = cond
		if err := c.checkStmts(st.Then); err != nil {
			return err
		}
		return c.checkStmts(st.Else)
	case *For:
		if err := c.checkAssign(st.Init); err != nil {
			return err
		}
		cond, err := c.checkExpr(st.Cond)
		if err != nil {
			return err
		}
		if cond.exprType().Kind != KindBool {
			return c.semErr(st.Line, "for condition must be bool, got %s", cond.exprType())
		}
		st.Cond = cond
		return c.checkStmts(st.Body)
	case *Return:
		return nil
	case *CallStmt:
		checked, err := c.checkCall(st.Call)
		if err != nil {
			return err
		}
		st.Call = checked
		return nil
	default:
		return c.semErr(0, "internal: unhandled statement %T", s)
	}
}

func (c *Checker) checkAssign(a *Assign) error {
	targetType, err := c.checkDest(a.Target)
	if err != nil {
		return err
	}
	value, err := c.checkExpr(a.Value)
	if err != nil {
		return err
	}
	coerced, err := coerce(value, targetType)
	if err != nil {
		return c.semErr(a.Line, "cannot assign %s to %s: %s", value.exprType(), targetType, err)
	}
	a.Value = coerced
	a.TargetType = targetType
	return nil
}

func (c *Checker) checkDest(d *Dest) (Type, error) {
	sym, ok := c.syms.Lookup(d.Name)
	if !ok {
		return Type{}, c.semErr(d.Line, "undeclared identifier %s", d.Name)
	}
	if sym.Kind != SymVar {
		return Type{}, c.semErr(d.Line, "%s is not a variable", d.Name)
	}
	if d.Index == nil {
		return sym.VarType, nil
	}
	if sym.VarType.Kind != KindArray {
		return Type{}, c.semErr(d.Line, "%s is not an array", d.Name)
	}
	idx, err := c.checkExpr(d.Index)
	if err != nil {
		return Type{}, err
	}
	if idx.exprType().Kind != KindInt {
		return Type{}, c.semErr(d.Line, "array index must be int, got %s", idx.exprType())
	}
	if err := c.checkLiteralBounds(idx, sym.VarType.Length); err != nil {
		return Type{}, err
	}
	d.Index = idx
	return *sym.VarType.Elem, nil
}

func (c *Checker) checkLiteralBounds(idx Expr, length int) error {
	lit, ok := idx.(*Lit)
	if !ok || lit.LitKind != LitInt {
		return nil
	}
	if lit.IntVal < 0 || lit.IntVal >= int64(length) {
		return c.semErr(lit.Line, "array index %d out of range for array of length %d", lit.IntVal, length)
	}
	return nil
}

// ---- Expressions ----

func (c *Checker) checkExpr(e Expr) (Expr, error) {
	switch v := e.(type) {
	case *Lit:
		return c.checkLit(v)
	case *Ref:
		return c.checkRef(v)
	case *Index:
		return c.checkIndex(v)
	case *Unary:
		return c.checkUnary(v)
	case *Binary:
		return c.checkBinary(v)
	case *Call:
		return c.checkCall(v)
	default:
		return nil, c.semErr(e.exprLine(), "internal: unhandled expression %T", e)
	}
}

func (c *Checker) checkLit(v *Lit) (Expr, error) {
	switch v.LitKind {
	case LitInt:
		v.Type = IntType
	case LitFloat:
		v.Type = FloatType
	case LitBool:
		v.Type = BoolType
	case LitString:
		v.Type = StringType
	}
	return v, nil
}

func (c *Checker) checkRef(v *Ref) (Expr, error) {
	sym, ok := c.syms.Lookup(v.Name)
	if !ok {
		return nil, c.semErr(v.Line, "undeclared identifier %s", v.Name)
	}
	if sym.Kind != SymVar {
		return nil, c.semErr(v.Line, "%s is a procedure, not a variable", v.Name)
	}
	v.Type = sym.VarType
	return v, nil
}

func (c *Checker) checkIndex(v *Index) (Expr, error) {
	sym, ok := c.syms.Lookup(v.Name)
	if !ok {
		return nil, c.semErr(v.Line, "undeclared identifier %s", v.Name)
	}
	if sym.Kind != SymVar || sym.VarType.Kind != KindArray {
		return nil, c.semErr(v.Line, "%s is not an array", v.Name)
	}
	idx, err := c.checkExpr(v.E)
	if err != nil {
		return nil, err
	}
	if idx.exprType().Kind != KindInt {
		return nil, c.semErr(v.Line, "array index must be int, got %s", idx.exprType())
	}
	if err := c.checkLiteralBounds(idx, sym.VarType.Length); err != nil {
		return nil, err
	}
	v.E = idx
	v.Type = *sym.VarType.Elem
	return v, nil
}

func (c *Checker) checkUnary(v *Unary) (Expr, error) {
	sub, err := c.checkExpr(v.E)
	if err != nil {
		return nil, err
	}
	v.E = sub
	t := sub.exprType()
	switch v.Op {
	case MINUS:
		if !t.IsNumeric() {
			return nil, c.semErr(v.Line, "unary - requires an int or float operand, got %s", t)
		}
	case NOT:
		if t.Kind != KindBool && t.Kind != KindInt {
			return nil, c.semErr(v.Line, "unary not requires a bool or int operand, got %s", t)
		}
	}
	v.Type = t
	return v, nil
}

func (c *Checker) checkBinary(v *Binary) (Expr, error) {
	lhs, err := c.checkExpr(v.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := c.checkExpr(v.Rhs)
	if err != nil {
		return nil, err
	}
	v.Lhs, v.Rhs = lhs, rhs
	lt, rt := lhs.exprType(), rhs.exprType()

	lIsArr, rIsArr := lt.Kind == KindArray, rt.Kind == KindArray
	if lIsArr || rIsArr {
		var n int
		switch {
		case lIsArr && rIsArr:
			if lt.Length != rt.Length {
				return nil, c.semErr(v.Line, "array length mismatch: %d vs %d", lt.Length, rt.Length)
			}
			n = lt.Length
		case lIsArr:
			n = lt.Length
		default:
			n = rt.Length
		}
		elemResult, _, _, err := opResultType(v.Op, elemType(lt), elemType(rt))
		if err != nil {
			return nil, c.semErr(v.Line, "%s", err)
		}
		v.Type = Type{Kind: KindArray, Elem: &elemResult, Length: n}
		v.Broadcast = true
		return v, nil
	}

	result, wantL, wantR, err := opResultType(v.Op, lt, rt)
	if err != nil {
		return nil, c.semErr(v.Line, "%s", err)
	}
	newLhs, err := coerce(lhs, wantL)
	if err != nil {
		return nil, c.semErr(v.Line, "%s", err)
	}
	newRhs, err := coerce(rhs, wantR)
	if err != nil {
		return nil, c.semErr(v.Line, "%s", err)
	}
	v.Lhs, v.Rhs = newLhs, newRhs
	v.Type = result
	return v, nil
}

func (c *Checker) checkCall(v *Call) (*Call, error) {
	sym, ok := c.syms.Lookup(v.Callee)
	if !ok {
		return nil, c.semErr(v.Line, "undeclared procedure %s", v.Callee)
	}
	if sym.Kind != SymProc {
		return nil, c.semErr(v.Line, "%s is not callable", v.Callee)
	}
	sig := sym.Proc
	if len(v.Args) != len(sig.Params) {
		return nil, c.semErr(v.Line, "%s expects %d argument(s), got %d", v.Callee, len(sig.Params), len(v.Args))
	}
	for i, arg := range v.Args {
		checked, err := c.checkExpr(arg)
		if err != nil {
			return nil, err
		}
		param := sig.Params[i]
		if param.Direction == OUT {
			switch checked.(type) {
			case *Ref, *Index:
			default:
				return nil, c.semErr(checked.exprLine(), "out argument %d to %s must be an l-value (identifier or index expression)", i+1, v.Callee)
			}
			if !checked.exprType().Equal(param.Type) {
				return nil, c.semErr(checked.exprLine(), "out argument %d to %s: expected %s, got %s", i+1, v.Callee, param.Type, checked.exprType())
			}
			v.Args[i] = checked
			continue
		}
		coerced, err := coerce(checked, param.Type)
		if err != nil {
			return nil, c.semErr(checked.exprLine(), "argument %d to %s: %s", i+1, v.Callee, err)
		}
		v.Args[i] = coerced
	}
	v.Type = sig.Return
	return v, nil
}

// ---- Coercion and operator tables ----

func elemType(t Type) Type {
	if t.Kind == KindArray {
		return *t.Elem
	}
	return t
}

// coerce wraps e in an ImplicitCast to target if e's type differs but is
// assignable, matching it exactly otherwise. Legal coercions are
// int<->float and int<->bool; strings and arrays require an exact match.
func coerce(e Expr, target Type) (Expr, error) {
	from := e.exprType()
	if from.Equal(target) {
		return e, nil
	}
	if !assignable(from, target) {
		return nil, fmt.Errorf("cannot coerce %s to %s", from, target)
	}
	return &ImplicitCast{exprBase: exprBase{Line: e.exprLine(), Type: target}, E: e, From: from, To: target}, nil
}

// assignable reports whether a value of type from may be implicitly
// coerced into a destination of type to. This is asymmetric for numerics:
// int widens to float automatically, but a float value assigned to an int
// destination is a type error and must be narrowed with an explicit
// conversion the language doesn't provide, i.e. it's simply rejected. bool
// and int coerce freely in either direction since C represents both as 0/1
// ints.
func assignable(from, to Type) bool {
	if from.Equal(to) {
		return true
	}
	widensToFloat := from.Kind == KindInt && to.Kind == KindFloat
	boolIntPair := (from.Kind == KindInt && to.Kind == KindBool) || (from.Kind == KindBool && to.Kind == KindInt)
	return widensToFloat || boolIntPair
}

// opResultType implements the operator table: given an operator and its two
// (scalar) operand types, it reports the result type and the type each
// operand must be coerced to before the operation.
func opResultType(op TokenType, lt, rt Type) (result, wantL, wantR Type, err error) {
	switch op {
	case PLUS, MINUS, STAR, SLASH:
		if lt.Kind == KindInt && rt.Kind == KindInt {
			return IntType, IntType, IntType, nil
		}
		if lt.IsNumeric() && rt.IsNumeric() {
			return FloatType, FloatType, FloatType, nil
		}
		return Type{}, Type{}, Type{}, fmt.Errorf("operator %s requires numeric operands, got %s and %s", op, lt, rt)

	case EQ, NEQ:
		if lt.IsNumeric() && rt.IsNumeric() {
			if lt.Kind == KindInt && rt.Kind == KindInt {
				return BoolType, IntType, IntType, nil
			}
			return BoolType, FloatType, FloatType, nil
		}
		if lt.Kind == KindBool && rt.Kind == KindBool {
			return BoolType, BoolType, BoolType, nil
		}
		if lt.Kind == KindString && rt.Kind == KindString {
			return BoolType, StringType, StringType, nil
		}
		return Type{}, Type{}, Type{}, fmt.Errorf("operands of %s are not comparable: %s and %s", op, lt, rt)

	case LT, GT, LE, GE:
		if lt.IsNumeric() && rt.IsNumeric() {
			if lt.Kind == KindInt && rt.Kind == KindInt {
				return BoolType, IntType, IntType, nil
			}
			return BoolType, FloatType, FloatType, nil
		}
		return Type{}, Type{}, Type{}, fmt.Errorf("operator %s requires numeric operands, got %s and %s", op, lt, rt)

	case AMP, PIPE:
		if lt.Kind == KindInt && rt.Kind == KindInt {
			return IntType, IntType, IntType, nil
		}
		if lt.Kind == KindBool && rt.Kind == KindBool {
			return BoolType, BoolType, BoolType, nil
		}
		return Type{}, Type{}, Type{}, fmt.Errorf("operator %s requires int x int or bool x bool operands, got %s and %s", op, lt, rt)

	default:
		return Type{}, Type{}, Type{}, fmt.Errorf("unsupported binary operator %s", op)
	}
}
