package srclang

import "testing"

func mustParse(t *testing.T, src string) *ProgramDecl {
	t.Helper()
	toks, err := Lex(src, "test.src")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	prog, err := Parse(toks, "test.src")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog
}

func TestParseMinimalProgram(t *testing.T) {
	prog := mustParse(t, `program p is begin return; end program`)
	if prog.Name != "p" {
		t.Fatalf("got name %q, want p", prog.Name)
	}
	if len(prog.Decls) != 0 {
		t.Fatalf("expected no declarations, got %d", len(prog.Decls))
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected one statement, got %d", len(prog.Body))
	}
	if _, ok := prog.Body[0].(*Return); !ok {
		t.Fatalf("expected *Return, got %T", prog.Body[0])
	}
}

func TestParseDeterminism(t *testing.T) {
	src := `program p is int x; begin x := 1 + 2 * 3; return; end program`
	a := mustParse(t, src)
	b := mustParse(t, src)

	aAssign := a.Body[0].(*Assign)
	bAssign := b.Body[0].(*Assign)
	aBin := aAssign.Value.(*Binary)
	bBin := bAssign.Value.(*Binary)
	if aBin.Op != bBin.Op {
		t.Fatalf("non-deterministic parse: %v vs %v", aBin.Op, bBin.Op)
	}
}

// TestPrecedenceAndBeforeOr checks that `&` binds tighter than `|`:
// `a | b & c` must parse as `a | (b & c)`.
func TestPrecedenceAndBeforeOr(t *testing.T) {
	prog := mustParse(t, `program p is bool a; bool b; bool c; begin
		a := a | b & c;
		return;
	end program`)
	assign := prog.Body[0].(*Assign)
	top, ok := assign.Value.(*Binary)
	if !ok || top.Op != PIPE {
		t.Fatalf("expected top-level |, got %#v", assign.Value)
	}
	rhs, ok := top.Rhs.(*Binary)
	if !ok || rhs.Op != AMP {
		t.Fatalf("expected & nested under |, got %#v", top.Rhs)
	}
}

func TestPrecedenceRelationalUnderLogical(t *testing.T) {
	prog := mustParse(t, `program p is int x; bool b; begin
		b := x == 1 & x == 2;
		return;
	end program`)
	assign := prog.Body[0].(*Assign)
	top, ok := assign.Value.(*Binary)
	if !ok || top.Op != AMP {
		t.Fatalf("expected top-level &, got %#v", assign.Value)
	}
	if _, ok := top.Lhs.(*Binary); !ok {
		t.Fatalf("expected lhs of & to be a relational Binary, got %#v", top.Lhs)
	}
}

func TestLeftAssociativeSubtraction(t *testing.T) {
	prog := mustParse(t, `program p is int x; begin x := 10 - 3 - 2; return; end program`)
	assign := prog.Body[0].(*Assign)
	top := assign.Value.(*Binary)
	if top.Op != MINUS {
		t.Fatalf("expected top-level -, got %v", top.Op)
	}
	inner, ok := top.Lhs.(*Binary)
	if !ok || inner.Op != MINUS {
		t.Fatalf("expected (10 - 3) - 2 left-leaning tree, got %#v", top.Lhs)
	}
}

func TestUnaryMinusRejectsParenthesised(t *testing.T) {
	_, err := Parse(lexOrFatal(t, `program p is int x; begin x := -(1 + 2); return; end program`), "test.src")
	if err == nil {
		t.Fatal("expected a syntax error for unary minus prefixing a parenthesised expression")
	}
}

func TestForInitialiserMustBeAssignment(t *testing.T) {
	_, err := Parse(lexOrFatal(t, `program p is int i; begin for (i; i < 10) i := i + 1; end for; return; end program`), "test.src")
	if err == nil {
		t.Fatal("expected a syntax error for a non-assignment for-loop initialiser")
	}
}

func TestCallAsStatementAndExpression(t *testing.T) {
	prog := mustParse(t, `program p is int x; begin
		x := getInteger();
		putInteger(x);
		return;
	end program`)
	assign, ok := prog.Body[0].(*Assign)
	if !ok {
		t.Fatalf("expected *Assign, got %T", prog.Body[0])
	}
	if _, ok := assign.Value.(*Call); !ok {
		t.Fatalf("expected a Call as the assignment value, got %#v", assign.Value)
	}
	if _, ok := prog.Body[1].(*CallStmt); !ok {
		t.Fatalf("expected *CallStmt, got %T", prog.Body[1])
	}
}

func lexOrFatal(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := Lex(src, "test.src")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	return toks
}
