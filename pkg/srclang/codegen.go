package srclang

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeGen walks a checked, optimised tree and emits plain C. Binary
// operators and value-returning built-in calls are lowered into statements
// that assign into a freshly named temporary (_t0, _t1, ...); leaves
// (literals, bare reads, indexing), unary operators and implicit casts are
// emitted inline as C expressions.
// Temporary numbering restarts at zero on entry to each procedure and to
// main, so names never grow unbounded across a whole program.
type CodeGen struct {
	syms    *SymbolTable
	verbose bool

	out strings.Builder
	cur *strings.Builder // active statement sink; nil while emitting top-level decls

	indent   int
	nextTemp int
	temps    []tempDecl
}

type tempDecl struct {
	name string
	decl string
}

// Generate lowers prog (already checked against syms and optionally
// optimised) into a complete C translation unit.
func Generate(prog *ProgramDecl, syms *SymbolTable, verbose bool) string {
	g := &CodeGen{syms: syms, verbose: verbose}

	g.out.WriteString("#include \"runtime.h\"\n")
	g.out.WriteString("#include <string.h>\n\n")

	for _, d := range prog.Decls {
		if pd, ok := d.(*ProcedureDecl); ok {
			g.out.WriteString(g.signature(pd) + ";\n")
		}
	}
	g.out.WriteString("\n")

	for _, d := range prog.Decls {
		if vd, ok := d.(*VariableDecl); ok {
			g.out.WriteString(cDeclString(vd.DeclaredType(), vd.Name) + ";\n")
		}
	}
	for _, d := range prog.Decls {
		pd, ok := d.(*ProcedureDecl)
		if !ok {
			continue
		}
		for _, ld := range pd.Decls {
			if vd, ok := ld.(*VariableDecl); ok && vd.IsGlobal {
				g.out.WriteString(cDeclString(vd.DeclaredType(), vd.Name) + ";\n")
			}
		}
	}
	g.out.WriteString("\n")

	for _, d := range prog.Decls {
		if pd, ok := d.(*ProcedureDecl); ok {
			g.genProcedure(pd)
			g.out.WriteString("\n")
		}
	}
	g.genMain(prog)

	return g.out.String()
}

// ---- C type and declaration rendering ----

func cScalarType(t Type) string {
	switch t.Kind {
	case KindInt, KindBool:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "int"
	}
}

// cDeclString renders a full C declaration (without the trailing
// semicolon) for a variable of type t: a scalar C type, a 256-byte buffer
// for a string, or an array of one of those.
func cDeclString(t Type, name string) string {
	if t.Kind == KindArray {
		elem := *t.Elem
		if elem.Kind == KindString {
			return fmt.Sprintf("char %s[%d][256]", name, t.Length)
		}
		return fmt.Sprintf("%s %s[%d]", cScalarType(elem), name, t.Length)
	}
	if t.Kind == KindString {
		return fmt.Sprintf("char %s[256]", name)
	}
	return fmt.Sprintf("%s %s", cScalarType(t), name)
}

// paramCType renders a procedure parameter's C type. Arrays and strings are
// always passed by their natural pointer representation regardless of
// direction; scalar out parameters are passed by address.
func paramCType(p Param) string {
	t := p.Decl.DeclaredType()
	switch {
	case t.Kind == KindArray:
		elem := *t.Elem
		if elem.Kind == KindString {
			return fmt.Sprintf("char (*%s)[256]", p.Decl.Name)
		}
		return fmt.Sprintf("%s *%s", cScalarType(elem), p.Decl.Name)
	case t.Kind == KindString:
		return fmt.Sprintf("char *%s", p.Decl.Name)
	case p.Direction == OUT:
		return fmt.Sprintf("%s *%s", cScalarType(t), p.Decl.Name)
	default:
		return fmt.Sprintf("%s %s", cScalarType(t), p.Decl.Name)
	}
}

func (g *CodeGen) signature(pd *ProcedureDecl) string {
	if len(pd.Params) == 0 {
		return fmt.Sprintf("void %s(void)", pd.Name)
	}
	params := make([]string, len(pd.Params))
	for i, p := range pd.Params {
		params[i] = paramCType(p)
	}
	return fmt.Sprintf("void %s(%s)", pd.Name, strings.Join(params, ", "))
}

// ---- Temporaries ----

func (g *CodeGen) newTemp(ctype string) string {
	name := fmt.Sprintf("_t%d", g.nextTemp)
	g.nextTemp++
	g.temps = append(g.temps, tempDecl{name: name, decl: ctype + " " + name})
	return name
}

func (g *CodeGen) newArrayTemp(elemCType string, n int) string {
	name := fmt.Sprintf("_t%d", g.nextTemp)
	g.nextTemp++
	g.temps = append(g.temps, tempDecl{name: name, decl: fmt.Sprintf("%s %s[%d]", elemCType, name, n)})
	return name
}

func (g *CodeGen) newStringTemp() string {
	name := fmt.Sprintf("_t%d", g.nextTemp)
	g.nextTemp++
	g.temps = append(g.temps, tempDecl{name: name, decl: fmt.Sprintf("char %s[256]", name)})
	return name
}

func (g *CodeGen) newLoopVar() string {
	name := fmt.Sprintf("_i%d", g.nextTemp)
	g.nextTemp++
	g.temps = append(g.temps, tempDecl{name: name, decl: "int " + name})
	return name
}

func (g *CodeGen) writef(format string, args ...any) {
	g.cur.WriteString(strings.Repeat("    ", g.indent))
	fmt.Fprintf(g.cur, format, args...)
	g.cur.WriteString("\n")
}

// ---- Procedures and main ----

func outParamSet(pd *ProcedureDecl) map[string]bool {
	out := map[string]bool{}
	for _, p := range pd.Params {
		t := p.Decl.DeclaredType()
		if p.Direction == OUT && t.Kind != KindArray && t.Kind != KindString {
			out[p.Decl.Name] = true
		}
	}
	return out
}

func (g *CodeGen) genProcedure(pd *ProcedureDecl) {
	outParams := outParamSet(pd)

	var body strings.Builder
	g.cur = &body
	g.indent = 1
	g.nextTemp = 0
	g.temps = nil
	g.genStmts(pd.Body, outParams, false)
	g.cur = nil

	var locals []string
	for _, d := range pd.Decls {
		if vd, ok := d.(*VariableDecl); ok && !vd.IsGlobal {
			locals = append(locals, "    "+cDeclString(vd.DeclaredType(), vd.Name)+";")
		}
	}
	for _, t := range g.temps {
		locals = append(locals, "    "+t.decl+";")
	}

	g.out.WriteString(g.signature(pd) + " {\n")
	for _, l := range locals {
		g.out.WriteString(l + "\n")
	}
	g.out.WriteString(body.String())
	g.out.WriteString("}\n")
}

func (g *CodeGen) genMain(prog *ProgramDecl) {
	var body strings.Builder
	g.cur = &body
	g.indent = 1
	g.nextTemp = 0
	g.temps = nil
	g.genStmts(prog.Body, map[string]bool{}, true)
	g.cur = nil

	g.out.WriteString("int main(void) {\n")
	for _, t := range g.temps {
		g.out.WriteString("    " + t.decl + ";\n")
	}
	g.out.WriteString(body.String())
	g.out.WriteString("    return 0;\n")
	g.out.WriteString("}\n")
}

// ---- Statements ----

func (g *CodeGen) genStmts(stmts []Stmt, outParams map[string]bool, inMain bool) {
	for _, s := range stmts {
		if g.verbose {
			g.writef("/* line %d */", stmtLine(s))
		}
		g.genStmt(s, outParams, inMain)
	}
}

func stmtLine(s Stmt) int {
	switch v := s.(type) {
	case *Assign:
		return v.Line
	case *If:
		return v.Line
	case *For:
		return v.Line
	case *Return:
		return v.Line
	case *CallStmt:
		return v.Line
	default:
		return 0
	}
}

func (g *CodeGen) genStmt(s Stmt, outParams map[string]bool, inMain bool) {
	switch st := s.(type) {
	case *Assign:
		g.genAssign(st, outParams)
	case *If:
		cond := g.genExpr(st.Cond, outParams)
		g.writef("if (%s) {", cond)
		g.indent++
		g.genStmts(st.Then, outParams, inMain)
		g.indent--
		if len(st.Else) > 0 {
			g.writef("} else {")
			g.indent++
			g.genStmts(st.Else, outParams, inMain)
			g.indent--
		}
		g.writef("}")
	case *For:
		g.genAssign(st.Init, outParams)
		g.writef("for (;;) {")
		g.indent++
		cond := g.genExpr(st.Cond, outParams)
		g.writef("if (!(%s)) break;", cond)
		g.genStmts(st.Body, outParams, inMain)
		g.indent--
		g.writef("}")
	case *Return:
		if inMain {
			g.writef("return 0;")
		} else {
			g.writef("return;")
		}
	case *CallStmt:
		g.genCallStmt(st, outParams)
	}
}

func (g *CodeGen) genAssign(a *Assign, outParams map[string]bool) {
	dst := a.Target.Name
	if a.Target.Index != nil {
		idx := g.genExpr(a.Target.Index, outParams)
		dst = fmt.Sprintf("%s[%s]", a.Target.Name, idx)
	} else if outParams[dst] {
		dst = "(*" + dst + ")"
	}

	switch a.TargetType.Kind {
	case KindArray:
		valName := g.genExpr(a.Value, outParams)
		idx := g.newLoopVar()
		g.writef("for (%s = 0; %s < %d; %s++) { %s[%s] = %s[%s]; }",
			idx, idx, a.TargetType.Length, idx, dst, idx, valName, idx)
	case KindString:
		valName := g.genExpr(a.Value, outParams)
		g.writef("strcpy(%s, %s);", dst, valName)
	default:
		valExpr := g.genExpr(a.Value, outParams)
		g.writef("%s = %s;", dst, valExpr)
	}
}

func (g *CodeGen) genCallStmt(cs *CallStmt, outParams map[string]bool) {
	v := cs.Call
	switch v.Callee {
	case "putBool", "putInteger", "putFloat", "putString":
		arg := g.genExpr(v.Args[0], outParams)
		g.writef("%s(%s);", v.Callee, arg)
	case "getBool", "getInteger", "getFloat", "getString":
		g.genExpr(v, outParams)
	default:
		sym, _ := g.syms.Lookup(v.Callee)
		args := g.genCallArgs(v, sym.Proc, outParams)
		g.writef("%s(%s);", v.Callee, strings.Join(args, ", "))
	}
}

func (g *CodeGen) genCallArgs(v *Call, sig *ProcSignature, outParams map[string]bool) []string {
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		param := sig.Params[i]
		switch {
		case param.Type.Kind == KindArray || param.Type.Kind == KindString:
			if ref, ok := a.(*Ref); ok {
				args[i] = ref.Name
			} else {
				args[i] = g.genExpr(a, outParams)
			}
		case param.Direction == OUT:
			switch av := a.(type) {
			case *Ref:
				if outParams[av.Name] {
					args[i] = av.Name
				} else {
					args[i] = "&" + av.Name
				}
			case *Index:
				idx := g.genExpr(av.E, outParams)
				args[i] = fmt.Sprintf("&%s[%s]", av.Name, idx)
			}
		default:
			args[i] = g.genExpr(a, outParams)
		}
	}
	return args
}

// ---- Expressions ----

// genExpr renders e as a usable C expression, emitting whatever statements
// are needed first. Leaves, unary operators and implicit casts are returned
// inline; binary operators and built-in getter calls are assigned into a
// fresh temporary and the temporary's name is returned.
func (g *CodeGen) genExpr(e Expr, outParams map[string]bool) string {
	switch v := e.(type) {
	case *Lit:
		return g.genLit(v)
	case *Ref:
		if outParams[v.Name] {
			return "(*" + v.Name + ")"
		}
		return v.Name
	case *Index:
		idx := g.genExpr(v.E, outParams)
		return fmt.Sprintf("%s[%s]", v.Name, idx)
	case *Unary:
		return g.genUnary(v, outParams)
	case *ImplicitCast:
		sub := g.genExpr(v.E, outParams)
		return g.genCast(v, sub)
	case *Binary:
		if v.Broadcast {
			return g.genBroadcast(v, outParams)
		}
		return g.genScalarBinary(v, outParams)
	case *Call:
		return g.genCallExpr(v, outParams)
	default:
		return "0"
	}
}

func (g *CodeGen) genLit(v *Lit) string {
	switch v.LitKind {
	case LitInt:
		return strconv.FormatInt(v.IntVal, 10)
	case LitFloat:
		s := strconv.FormatFloat(v.FloatVal, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case LitBool:
		if v.BoolVal {
			return "1"
		}
		return "0"
	case LitString:
		return strconv.Quote(v.StrVal)
	default:
		return "0"
	}
}

func (g *CodeGen) genUnary(v *Unary, outParams map[string]bool) string {
	sub := g.genExpr(v.E, outParams)
	if v.Op == MINUS {
		return "(-" + sub + ")"
	}
	if v.E.exprType().Kind == KindBool {
		return "(!" + sub + ")"
	}
	return "(~" + sub + ")"
}

func (g *CodeGen) genCast(v *ImplicitCast, sub string) string {
	switch {
	case v.From.Kind == KindInt && v.To.Kind == KindFloat:
		return fmt.Sprintf("((float)%s)", sub)
	case v.From.Kind == KindFloat && v.To.Kind == KindInt:
		return fmt.Sprintf("((int)%s)", sub)
	case v.From.Kind == KindInt && v.To.Kind == KindBool:
		return fmt.Sprintf("(%s != 0)", sub)
	case v.From.Kind == KindBool && v.To.Kind == KindInt:
		return sub
	default:
		return sub
	}
}

var cBinOp = map[TokenType]string{
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/",
	EQ: "==", NEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	AMP: "&", PIPE: "|",
}

func (g *CodeGen) genScalarBinary(v *Binary, outParams map[string]bool) string {
	lhs := g.genExpr(v.Lhs, outParams)
	rhs := g.genExpr(v.Rhs, outParams)
	op := cBinOp[v.Op]

	// string == / != compares char[256] buffers, so a raw C == would
	// compare array decay pointers rather than contents.
	if (v.Op == EQ || v.Op == NEQ) && v.Lhs.exprType().Kind == KindString {
		tmp := g.newTemp(cScalarType(v.Type))
		cmp := "=="
		if v.Op == NEQ {
			cmp = "!="
		}
		g.writef("%s = (strcmp(%s, %s) %s 0);", tmp, lhs, rhs, cmp)
		return tmp
	}

	if (v.Op == AMP || v.Op == PIPE) && v.Lhs.exprType().Kind == KindBool {
		tmp := g.newTemp(cScalarType(v.Type))
		opChar := "'&'"
		if v.Op == PIPE {
			opChar = "'|'"
		}
		g.writef("validateBooleanOp(%s, %s, %s, %d);", lhs, opChar, rhs, v.Line)
		g.writef("%s = %s %s %s;", tmp, lhs, op, rhs)
		return tmp
	}

	tmp := g.newTemp(cScalarType(v.Type))
	g.writef("%s = %s %s %s;", tmp, lhs, op, rhs)
	return tmp
}

// genBroadcast lowers an array-vs-scalar or array-vs-array binary operator
// into a loop over the declared array length. Each operand is evaluated
// exactly once, before the loop, so a call used as one of the operands
// still fires exactly once.
func (g *CodeGen) genBroadcast(v *Binary, outParams map[string]bool) string {
	n := v.Type.Length
	elemCT := cScalarType(*v.Type.Elem)
	tmp := g.newArrayTemp(elemCT, n)

	lIsArr := v.Lhs.exprType().Kind == KindArray
	rIsArr := v.Rhs.exprType().Kind == KindArray
	lhsName := g.genExpr(v.Lhs, outParams)
	rhsName := g.genExpr(v.Rhs, outParams)

	idx := g.newLoopVar()
	g.writef("for (%s = 0; %s < %d; %s++) {", idx, idx, n, idx)
	g.indent++
	lElem, rElem := lhsName, rhsName
	if lIsArr {
		lElem = fmt.Sprintf("%s[%s]", lhsName, idx)
	}
	if rIsArr {
		rElem = fmt.Sprintf("%s[%s]", rhsName, idx)
	}
	operandType := elemType(v.Lhs.exprType())
	switch {
	case (v.Op == EQ || v.Op == NEQ) && operandType.Kind == KindString:
		cmp := "=="
		if v.Op == NEQ {
			cmp = "!="
		}
		g.writef("%s[%s] = (strcmp(%s, %s) %s 0);", tmp, idx, lElem, rElem, cmp)
	case (v.Op == AMP || v.Op == PIPE) && operandType.Kind == KindBool:
		opChar := "'&'"
		if v.Op == PIPE {
			opChar = "'|'"
		}
		g.writef("validateBooleanOp(%s, %s, %s, %d);", lElem, opChar, rElem, v.Line)
		g.writef("%s[%s] = %s %s %s;", tmp, idx, lElem, cBinOp[v.Op], rElem)
	default:
		g.writef("%s[%s] = %s %s %s;", tmp, idx, lElem, cBinOp[v.Op], rElem)
	}
	g.indent--
	g.writef("}")
	return tmp
}

func (g *CodeGen) genCallExpr(v *Call, outParams map[string]bool) string {
	switch v.Callee {
	case "getBool", "getInteger", "getFloat":
		tmp := g.newTemp(cScalarType(v.Type))
		g.writef("%s = %s();", tmp, v.Callee)
		return tmp
	case "getString":
		tmp := g.newStringTemp()
		g.writef("%s(%s);", v.Callee, tmp)
		return tmp
	default:
		// User procedures always return void; this branch is unreachable
		// for a tree that passed the checker.
		sym, _ := g.syms.Lookup(v.Callee)
		args := g.genCallArgs(v, sym.Proc, outParams)
		g.writef("%s(%s);", v.Callee, strings.Join(args, ", "))
		return "0"
	}
}
