package srclang

// Optimize runs three optimisation levels over prog. Level 0 is the
// identity transform. Level 1 folds constant subexpressions and drops the
// unreachable arm of an If whose condition folded to a literal. Level 2
// additionally applies a handful of algebraic identities and removes local
// dead stores. Every level preserves the order and occurrence of every
// Call, since calls may perform I/O.
func Optimize(prog *ProgramDecl, level int) *ProgramDecl {
	if level <= 0 {
		return prog
	}
	o := &optimizer{level: level, globals: collectGlobalNames(prog)}
	noTail := tailContext{usesName: func(string) bool { return false }}
	for _, d := range prog.Decls {
		if pd, ok := d.(*ProcedureDecl); ok {
			pd.Body = o.optimizeStmts(pd.Body, exitTail(outParamSet(pd), o.globals))
		}
	}
	prog.Body = o.optimizeStmts(prog.Body, noTail)
	return prog
}

// exitTail is the tail context for a procedure's own body: once the body
// finishes, the caller reads back every scalar out parameter through its
// pointer, and the caller (or any procedure it runs next) may read any
// global, so a store to either must count as read even with no use inside
// the body itself. outParams is the same outParamSet codegen uses to pass
// those parameters by address.
func exitTail(outParams, globals map[string]bool) tailContext {
	return tailContext{usesName: func(name string) bool { return outParams[name] || globals[name] }}
}

// collectGlobalNames gathers every variable name visible at root scope: the
// program's own top-level declarations, plus any procedure-local
// declaration promoted to root scope with the global keyword. Dead-store
// elimination treats a store to one of these names as live whenever a
// user-defined procedure might run afterward, since that call could read
// the global from inside its own body - an escape no per-block textual scan
// of argument lists alone can see.
func collectGlobalNames(prog *ProgramDecl) map[string]bool {
	globals := map[string]bool{}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *VariableDecl:
			globals[decl.Name] = true
		case *ProcedureDecl:
			for _, ld := range decl.Decls {
				if vd, ok := ld.(*VariableDecl); ok && vd.IsGlobal {
					globals[vd.Name] = true
				}
			}
		}
	}
	return globals
}

// builtinCallees is the set of I/O procedures declared directly by
// NewSymbolTable; calls to them never reach user code, so they cannot read
// a global that the checker doesn't already see as an explicit argument.
var builtinCallees = map[string]bool{
	"getBool": true, "getInteger": true, "getFloat": true, "getString": true,
	"putBool": true, "putInteger": true, "putFloat": true, "putString": true,
}

type optimizer struct {
	level   int
	globals map[string]bool
}

// tailContext describes what happens after a statement list finishes:
// usesName reports whether a given name is read somewhere later - in the
// rest of the enclosing block, and beyond it in turn - and hasUserCall
// reports whether any user-defined procedure runs somewhere later, which
// dead-store elimination must treat as a potential read of every global.
type tailContext struct {
	usesName    func(name string) bool
	hasUserCall bool
}

// optimizeStmts optimizes a straight-line statement list, given what
// happens after it finishes (tail). Threading tail down into nested If
// arms and For bodies lets their own dead-store elimination see a read, or
// an escaping call, that only happens once the nested block has exited.
func (o *optimizer) optimizeStmts(stmts []Stmt, tail tailContext) []Stmt {
	var out []Stmt
	for i, s := range stmts {
		rest := stmts[i+1:]
		stmtTail := tailContext{
			usesName:    func(name string) bool { return usesName(rest, name) || tail.usesName(name) },
			hasUserCall: stmtsCallUserProcedure(rest) || tail.hasUserCall,
		}
		out = append(out, o.optimizeStmt(s, stmtTail)...)
	}
	if o.level >= 2 {
		out = o.eliminateDeadStores(out, tail)
	}
	return out
}

// optimizeStmt returns the statements that should replace s: usually a
// single-element slice, but an If whose condition folded to a literal
// contributes its selected arm's statements directly (possibly zero of
// them), which is how dead branches disappear entirely from the tree.
// tail describes what happens after s itself finishes.
func (o *optimizer) optimizeStmt(s Stmt, tail tailContext) []Stmt {
	switch st := s.(type) {
	case *Assign:
		st.Value = o.fold(st.Value)
		if st.Target.Index != nil {
			st.Target.Index = o.fold(st.Target.Index)
		}
		return []Stmt{st}

	case *If:
		st.Cond = o.fold(st.Cond)
		st.Then = o.optimizeStmts(st.Then, tail)
		st.Else = o.optimizeStmts(st.Else, tail)
		if lit, ok := st.Cond.(*Lit); ok && lit.LitKind == LitBool {
			if lit.BoolVal {
				return st.Then
			}
			return st.Else
		}
		return []Stmt{st}

	case *For:
		st.Cond = o.fold(st.Cond)
		// A store inside the body is read again either by the condition
		// re-check on the next iteration, or by the body itself on the
		// next pass, or after the loop exits - so the body's dead-store
		// pass must treat all three as potential reads, not just what
		// follows the loop. Likewise a call anywhere in the body recurs
		// every iteration, so it escapes to every earlier store too.
		loopTail := tailContext{
			usesName: func(name string) bool {
				return exprUsesName(st.Cond, name) || usesName(st.Body, name) || tail.usesName(name)
			},
			hasUserCall: exprCallsUserProcedure(st.Cond) || stmtsCallUserProcedure(st.Body) || tail.hasUserCall,
		}
		initRes := o.optimizeStmt(st.Init, loopTail)
		st.Init = initRes[0].(*Assign)
		st.Body = o.optimizeStmts(st.Body, loopTail)
		return []Stmt{st}

	case *CallStmt:
		st.Call = o.fold(st.Call).(*Call)
		return []Stmt{st}

	default:
		return []Stmt{st}
	}
}

// fold performs a post-order constant-folding walk: children are folded
// first, then the node itself is collapsed if possible.
func (o *optimizer) fold(e Expr) Expr {
	switch v := e.(type) {
	case *Lit, *Ref:
		return v
	case *Index:
		v.E = o.fold(v.E)
		return v
	case *Unary:
		v.E = o.fold(v.E)
		return o.foldUnary(v)
	case *Binary:
		v.Lhs = o.fold(v.Lhs)
		v.Rhs = o.fold(v.Rhs)
		return o.foldBinary(v)
	case *ImplicitCast:
		v.E = o.fold(v.E)
		return o.foldCast(v)
	case *Call:
		for i := range v.Args {
			v.Args[i] = o.fold(v.Args[i])
		}
		return v
	default:
		return e
	}
}

func (o *optimizer) foldCast(v *ImplicitCast) Expr {
	lit, ok := v.E.(*Lit)
	if !ok {
		return v
	}
	line := v.Line
	switch {
	case v.From.Kind == KindInt && v.To.Kind == KindFloat:
		return &Lit{exprBase: exprBase{Line: line, Type: FloatType}, LitKind: LitFloat, FloatVal: float64(lit.IntVal)}
	case v.From.Kind == KindFloat && v.To.Kind == KindInt:
		return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: int64(lit.FloatVal)}
	case v.From.Kind == KindInt && v.To.Kind == KindBool:
		return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: lit.IntVal != 0}
	case v.From.Kind == KindBool && v.To.Kind == KindInt:
		n := int64(0)
		if lit.BoolVal {
			n = 1
		}
		return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: n}
	default:
		return v
	}
}

func (o *optimizer) foldUnary(v *Unary) Expr {
	lit, ok := v.E.(*Lit)
	if !ok {
		return v
	}
	line := v.Line
	switch v.Op {
	case MINUS:
		if lit.LitKind == LitInt {
			return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: -lit.IntVal}
		}
		if lit.LitKind == LitFloat {
			return &Lit{exprBase: exprBase{Line: line, Type: FloatType}, LitKind: LitFloat, FloatVal: -lit.FloatVal}
		}
	case NOT:
		if lit.LitKind == LitBool {
			return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: !lit.BoolVal}
		}
		if lit.LitKind == LitInt {
			return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: ^lit.IntVal}
		}
	}
	return v
}

func (o *optimizer) foldBinary(v *Binary) Expr {
	if folded, ok := tryFoldLiterals(v); ok {
		return folded
	}
	if o.level >= 2 {
		if folded, ok := tryAlgebraicIdentity(v); ok {
			return folded
		}
	}
	return v
}

func isNumericLit(l *Lit) bool { return l.LitKind == LitInt || l.LitKind == LitFloat }

func litFloat(l *Lit) float64 {
	if l.LitKind == LitFloat {
		return l.FloatVal
	}
	return float64(l.IntVal)
}

// tryFoldLiterals implements level 1: constant folding over Lit children.
// Broadcast (array) operators are never folded here; their operands are
// never both scalar Lit nodes.
func tryFoldLiterals(v *Binary) (Expr, bool) {
	if v.Broadcast {
		return nil, false
	}
	ll, lok := v.Lhs.(*Lit)
	rl, rok := v.Rhs.(*Lit)
	if !lok || !rok {
		return nil, false
	}
	line := v.Line

	switch v.Op {
	case PLUS, MINUS, STAR, SLASH:
		if ll.LitKind == LitInt && rl.LitKind == LitInt {
			if v.Op == SLASH && rl.IntVal == 0 {
				return nil, false
			}
			var res int64
			switch v.Op {
			case PLUS:
				res = ll.IntVal + rl.IntVal
			case MINUS:
				res = ll.IntVal - rl.IntVal
			case STAR:
				res = ll.IntVal * rl.IntVal
			case SLASH:
				res = ll.IntVal / rl.IntVal
			}
			return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: res}, true
		}
		if isNumericLit(ll) && isNumericLit(rl) {
			lf, rf := litFloat(ll), litFloat(rl)
			if v.Op == SLASH && rf == 0 {
				return nil, false
			}
			var res float64
			switch v.Op {
			case PLUS:
				res = lf + rf
			case MINUS:
				res = lf - rf
			case STAR:
				res = lf * rf
			case SLASH:
				res = lf / rf
			}
			return &Lit{exprBase: exprBase{Line: line, Type: FloatType}, LitKind: LitFloat, FloatVal: res}, true
		}
		return nil, false

	case EQ, NEQ, LT, GT, LE, GE:
		if isNumericLit(ll) && isNumericLit(rl) {
			lf, rf := litFloat(ll), litFloat(rl)
			return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: compareFloat(v.Op, lf, rf)}, true
		}
		if ll.LitKind == LitBool && rl.LitKind == LitBool && (v.Op == EQ || v.Op == NEQ) {
			res := ll.BoolVal == rl.BoolVal
			if v.Op == NEQ {
				res = !res
			}
			return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: res}, true
		}
		if ll.LitKind == LitString && rl.LitKind == LitString && (v.Op == EQ || v.Op == NEQ) {
			res := ll.StrVal == rl.StrVal
			if v.Op == NEQ {
				res = !res
			}
			return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: res}, true
		}
		return nil, false

	case AMP, PIPE:
		if ll.LitKind == LitInt && rl.LitKind == LitInt {
			res := ll.IntVal & rl.IntVal
			if v.Op == PIPE {
				res = ll.IntVal | rl.IntVal
			}
			return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: res}, true
		}
		if ll.LitKind == LitBool && rl.LitKind == LitBool {
			res := ll.BoolVal && rl.BoolVal
			if v.Op == PIPE {
				res = ll.BoolVal || rl.BoolVal
			}
			return &Lit{exprBase: exprBase{Line: line, Type: BoolType}, LitKind: LitBool, BoolVal: res}, true
		}
		return nil, false
	}
	return nil, false
}

func compareFloat(op TokenType, l, r float64) bool {
	switch op {
	case EQ:
		return l == r
	case NEQ:
		return l != r
	case LT:
		return l < r
	case GT:
		return l > r
	case LE:
		return l <= r
	case GE:
		return l >= r
	}
	return false
}

// tryAlgebraicIdentity implements level 2's identity simplifications:
// x+0, x*1, x*0, x-x (x a pure reference), x & true, x | false.
func tryAlgebraicIdentity(v *Binary) (Expr, bool) {
	switch v.Op {
	case PLUS:
		if isZeroLit(v.Rhs) {
			return v.Lhs, true
		}
		if isZeroLit(v.Lhs) {
			return v.Rhs, true
		}
	case STAR:
		if isOneLit(v.Rhs) {
			return v.Lhs, true
		}
		if isOneLit(v.Lhs) {
			return v.Rhs, true
		}
		if (isZeroLit(v.Rhs) || isZeroLit(v.Lhs)) && !containsCall(v.Lhs) && !containsCall(v.Rhs) {
			return zeroOfType(v.Type, v.Line)
		}
	case MINUS:
		if lref, ok := v.Lhs.(*Ref); ok {
			if rref, ok2 := v.Rhs.(*Ref); ok2 && lref.Name == rref.Name {
				return zeroOfType(v.Type, v.Line)
			}
		}
	case AMP:
		if isTrueLit(v.Rhs) {
			return v.Lhs, true
		}
		if isTrueLit(v.Lhs) {
			return v.Rhs, true
		}
	case PIPE:
		if isFalseLit(v.Rhs) {
			return v.Lhs, true
		}
		if isFalseLit(v.Lhs) {
			return v.Rhs, true
		}
	}
	return nil, false
}

func zeroOfType(t Type, line int) (Expr, bool) {
	switch t.Kind {
	case KindInt:
		return &Lit{exprBase: exprBase{Line: line, Type: IntType}, LitKind: LitInt, IntVal: 0}, true
	case KindFloat:
		return &Lit{exprBase: exprBase{Line: line, Type: FloatType}, LitKind: LitFloat, FloatVal: 0}, true
	default:
		return nil, false
	}
}

func isZeroLit(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && ((l.LitKind == LitInt && l.IntVal == 0) || (l.LitKind == LitFloat && l.FloatVal == 0))
}

func isOneLit(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && ((l.LitKind == LitInt && l.IntVal == 1) || (l.LitKind == LitFloat && l.FloatVal == 1))
}

func isTrueLit(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && l.LitKind == LitBool && l.BoolVal
}

func isFalseLit(e Expr) bool {
	l, ok := e.(*Lit)
	return ok && l.LitKind == LitBool && !l.BoolVal
}

// ---- Dead local assignment elimination (level 2) ----

// eliminateDeadStores drops an Assign whose value has no call (so no
// observable side effect is lost) when its target name is never used again
// anywhere later in this statement list or in whatever tail says follows
// it. A store to a global name gets one extra condition: it also survives
// if a user-defined procedure might run afterward, in this list or beyond
// it, since that procedure's own body - invisible to this per-block scan -
// may read the global directly. This keeps the analysis local (no
// inter-procedural dataflow) without letting a store that genuinely escapes
// get discarded.
func (o *optimizer) eliminateDeadStores(stmts []Stmt, tail tailContext) []Stmt {
	var out []Stmt
	for i, s := range stmts {
		if asg, ok := s.(*Assign); ok && asg.Target.Index == nil && !containsCall(asg.Value) {
			rest := stmts[i+1:]
			read := usesName(rest, asg.Target.Name) || tail.usesName(asg.Target.Name)
			escapes := o.globals[asg.Target.Name] && (stmtsCallUserProcedure(rest) || tail.hasUserCall)
			if !read && !escapes {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// stmtsCallUserProcedure reports whether any statement in stmts - directly
// or inside a nested If/For - calls a procedure other than the built-in
// I/O routines.
func stmtsCallUserProcedure(stmts []Stmt) bool {
	for _, s := range stmts {
		switch st := s.(type) {
		case *Assign:
			if exprCallsUserProcedure(st.Value) {
				return true
			}
			if st.Target.Index != nil && exprCallsUserProcedure(st.Target.Index) {
				return true
			}
		case *If:
			if exprCallsUserProcedure(st.Cond) || stmtsCallUserProcedure(st.Then) || stmtsCallUserProcedure(st.Else) {
				return true
			}
		case *For:
			if exprCallsUserProcedure(st.Init.Value) || exprCallsUserProcedure(st.Cond) || stmtsCallUserProcedure(st.Body) {
				return true
			}
		case *CallStmt:
			if exprCallsUserProcedure(st.Call) {
				return true
			}
		}
	}
	return false
}

func exprCallsUserProcedure(e Expr) bool {
	switch v := e.(type) {
	case *Call:
		if !builtinCallees[v.Callee] {
			return true
		}
		for _, a := range v.Args {
			if exprCallsUserProcedure(a) {
				return true
			}
		}
		return false
	case *Binary:
		return exprCallsUserProcedure(v.Lhs) || exprCallsUserProcedure(v.Rhs)
	case *Unary:
		return exprCallsUserProcedure(v.E)
	case *Index:
		return exprCallsUserProcedure(v.E)
	case *ImplicitCast:
		return exprCallsUserProcedure(v.E)
	default:
		return false
	}
}

func containsCall(e Expr) bool {
	switch v := e.(type) {
	case *Call:
		return true
	case *Binary:
		return containsCall(v.Lhs) || containsCall(v.Rhs)
	case *Unary:
		return containsCall(v.E)
	case *Index:
		return containsCall(v.E)
	case *ImplicitCast:
		return containsCall(v.E)
	default:
		return false
	}
}

func usesName(stmts []Stmt, name string) bool {
	for _, s := range stmts {
		switch st := s.(type) {
		case *Assign:
			if st.Target.Index != nil && exprUsesName(st.Target.Index, name) {
				return true
			}
			if exprUsesName(st.Value, name) {
				return true
			}
		case *If:
			if exprUsesName(st.Cond, name) || usesName(st.Then, name) || usesName(st.Else, name) {
				return true
			}
		case *For:
			if exprUsesName(st.Init.Value, name) || st.Init.Target.Name == name {
				return true
			}
			if exprUsesName(st.Cond, name) || usesName(st.Body, name) {
				return true
			}
		case *CallStmt:
			if exprUsesName(st.Call, name) {
				return true
			}
		}
	}
	return false
}

func exprUsesName(e Expr, name string) bool {
	switch v := e.(type) {
	case *Ref:
		return v.Name == name
	case *Index:
		return v.Name == name || exprUsesName(v.E, name)
	case *Binary:
		return exprUsesName(v.Lhs, name) || exprUsesName(v.Rhs, name)
	case *Unary:
		return exprUsesName(v.E, name)
	case *ImplicitCast:
		return exprUsesName(v.E, name)
	case *Call:
		for _, a := range v.Args {
			if exprUsesName(a, name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
