package srclang

import (
	"strings"
	"testing"
)

func typecheckSrc(t *testing.T, src string) (*ProgramDecl, *SymbolTable, error) {
	t.Helper()
	toks, err := Lex(src, "test.src")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	prog, err := Parse(toks, "test.src")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	syms, err := Check(prog, "test.src")
	return prog, syms, err
}

func TestCheckIntFloatCoercionOnAssignment(t *testing.T) {
	// scenario 2: assigning a float rhs to an int lhs is an error, since
	// assignment only widens int to float, never narrows the other way.
	_, _, err := typecheckSrc(t, `program p is int x; begin x := 3 + 4.5; putFloat(x); return; end program`)
	if err == nil {
		t.Fatal("expected a semantic error assigning float to int")
	}
}

func TestCheckFloatFromIntLiteralIsFine(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is float x; begin x := 3; return; end program`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckArrayBroadcastAssignment(t *testing.T) {
	// scenario 3: a[4] := a + 1 is legal array-scalar broadcast.
	prog, _, err := typecheckSrc(t, `program p is int a[4]; begin a := a + 1; putInteger(a[2]); return; end program`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assign := prog.Body[0].(*Assign)
	bin, ok := assign.Value.(*Binary)
	if !ok || !bin.Broadcast {
		t.Fatalf("expected a broadcast Binary, got %#v", assign.Value)
	}
	if assign.TargetType.Kind != KindArray {
		t.Fatalf("expected array target type, got %v", assign.TargetType)
	}
}

func TestCheckDuplicateLocalDeclaration(t *testing.T) {
	// scenario 6.
	_, _, err := typecheckSrc(t, `program p is
		procedure f() int x; int x; begin return; end procedure;
	begin
		return;
	end program`)
	if err == nil || !strings.Contains(err.Error(), "duplicate declaration of x") {
		t.Fatalf("expected duplicate declaration error, got %v", err)
	}
}

func TestCheckDuplicateProcedureName(t *testing.T) {
	// supplemented scenario 9: duplicate detection also applies across
	// procedure declarations at program scope.
	_, _, err := typecheckSrc(t, `program p is
		procedure f() begin return; end procedure;
		procedure f() begin return; end procedure;
	begin
		return;
	end program`)
	if err == nil || !strings.Contains(err.Error(), "duplicate declaration of f") {
		t.Fatalf("expected duplicate declaration error, got %v", err)
	}
}

func TestCheckUndeclaredIdentifier(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is begin x := 1; return; end program`)
	if err == nil {
		t.Fatal("expected an undeclared-identifier error")
	}
}

func TestCheckOutArgumentRequiresLValue(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is
		procedure f(int x out) begin return; end procedure;
	begin
		f(1 + 2);
		return;
	end program`)
	if err == nil {
		t.Fatal("expected an error passing a non-l-value to an out parameter")
	}
}

func TestCheckOutArgumentAcceptsIdentifier(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is
		int x;
		procedure f(int y out) begin y := 1; return; end procedure;
	begin
		f(x);
		return;
	end program`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckArrayLengthMismatch(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is int a[3]; int b[4]; int c[4]; begin c := a + b; return; end program`)
	if err == nil {
		t.Fatal("expected an array-length mismatch error")
	}
}

func TestCheckLiteralIndexOutOfRange(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is int a[4]; begin a[10] := 1; return; end program`)
	if err == nil {
		t.Fatal("expected a literal-index-out-of-range error")
	}
}

func TestCheckNestedProcedureDeclarationRejected(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is
		procedure outer() procedure inner() begin return; end procedure; begin return; end procedure;
	begin
		return;
	end program`)
	if err == nil || !strings.Contains(err.Error(), "nested procedure") {
		t.Fatalf("expected nested-procedure error, got %v", err)
	}
}

func TestCheckGlobalInsideProcedurePromotesToRoot(t *testing.T) {
	// supplemented scenario 8: a global declared inside a procedure is
	// callable/visible from another procedure's body.
	_, syms, err := typecheckSrc(t, `program p is
		procedure setter() global int shared; begin shared := 1; return; end procedure;
		procedure getter() begin putInteger(shared); return; end procedure;
	begin
		setter();
		getter();
		return;
	end program`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := syms.Lookup("shared"); !ok {
		t.Fatal("expected shared to be visible at root after promotion")
	}
}

func TestCheckBooleanBitwiseNoIntMixing(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is int x; bool b; begin b := x & true; return; end program`)
	if err == nil {
		t.Fatal("expected an error mixing int and bool operands of &")
	}
}

func TestCheckReturnLegalInProgramBodyAndProcedure(t *testing.T) {
	_, _, err := typecheckSrc(t, `program p is
		procedure f() begin return; end procedure;
	begin
		f();
		return;
	end program`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
