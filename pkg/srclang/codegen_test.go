package srclang

import (
	"strings"
	"testing"
)

func generateC(t *testing.T, src string, level int) string {
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
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	prog = Optimize(prog, level)
	return Generate(prog, syms, false)
}

func TestGenerateIncludesRuntimeHeader(t *testing.T) {
	c := generateC(t, `program p is begin return; end program`, 0)
	if !strings.Contains(c, `#include "runtime.h"`) {
		t.Fatal("expected the emitted C to include runtime.h")
	}
}

func TestGenerateMainReturnsZero(t *testing.T) {
	c := generateC(t, `program p is begin putInteger(1); return; end program`, 0)
	if !strings.Contains(c, "int main(void) {") {
		t.Fatal("expected an int main(void) entry point")
	}
	if !strings.Contains(c, "return 0;") {
		t.Fatal("expected the program body's return to lower to `return 0;`")
	}
}

func TestGenerateProcedureReturnsVoid(t *testing.T) {
	c := generateC(t, `program p is
		procedure f() begin return; end procedure;
	begin
		f();
		return;
	end program`, 0)
	if !strings.Contains(c, "void f(void) {") {
		t.Fatalf("expected a void f(void) signature, got:\n%s", c)
	}
	// The procedure's own bare return must lower to `return;`, not `return 0;`.
	idx := strings.Index(c, "void f(void) {")
	body := c[idx:]
	end := strings.Index(body, "}")
	if !strings.Contains(body[:end], "return;") {
		t.Fatalf("expected a bare `return;` inside f's body, got:\n%s", body[:end])
	}
}

func TestGenerateBooleanOperatorsCallValidateBooleanOp(t *testing.T) {
	c := generateC(t, `program p is bool a; bool b; bool c; begin c := a & b; return; end program`, 0)
	if !strings.Contains(c, "validateBooleanOp(") {
		t.Fatalf("expected a validateBooleanOp call for bool &, got:\n%s", c)
	}
}

func TestGenerateIntBitwiseSkipsValidateBooleanOp(t *testing.T) {
	c := generateC(t, `program p is int a; int b; int c; begin c := a & b; return; end program`, 0)
	if strings.Contains(c, "validateBooleanOp(") {
		t.Fatalf("int & must not call validateBooleanOp, got:\n%s", c)
	}
}

func TestGenerateArrayBroadcastEmitsLoop(t *testing.T) {
	c := generateC(t, `program p is int a[4]; begin a := a + 1; return; end program`, 0)
	if !strings.Contains(c, "for (") {
		t.Fatalf("expected a for loop lowering the array broadcast, got:\n%s", c)
	}
	if !strings.Contains(c, "int a[4];") {
		t.Fatalf("expected a to be declared as a global int a[4], got:\n%s", c)
	}
}

func TestGenerateOutParameterDereferenced(t *testing.T) {
	c := generateC(t, `program p is
		int x;
		procedure setIt(int y out) begin y := 42; return; end procedure;
	begin
		setIt(x);
		return;
	end program`, 0)
	if !strings.Contains(c, "int *y") {
		t.Fatalf("expected an out int parameter to be passed by address, got:\n%s", c)
	}
	if !strings.Contains(c, "(*y) = 42;") {
		t.Fatalf("expected the assignment to an out parameter to dereference it, got:\n%s", c)
	}
	if !strings.Contains(c, "setIt(&x);") {
		t.Fatalf("expected the call site to take the address of the argument, got:\n%s", c)
	}
}

func TestGenerateStringAssignmentUsesStrcpy(t *testing.T) {
	c := generateC(t, `program p is string s; begin s := "hi"; return; end program`, 0)
	if !strings.Contains(c, `#include <string.h>`) {
		t.Fatal("expected string.h to be included for strcpy")
	}
	if !strings.Contains(c, "strcpy(s,") {
		t.Fatalf("expected a strcpy for string assignment, got:\n%s", c)
	}
}

func TestGenerateStringEqualityUsesStrcmp(t *testing.T) {
	c := generateC(t, `program p is string s; bool b; begin s := "hi"; b := (s == "hi"); return; end program`, 0)
	if !strings.Contains(c, `strcmp(s, "hi") == 0`) {
		t.Fatalf("expected string == to compile to a strcmp comparison, got:\n%s", c)
	}
	if strings.Contains(c, `s == "hi"`) {
		t.Fatalf("string == must not compile to a raw pointer comparison, got:\n%s", c)
	}
}

func TestGenerateStringInequalityUsesStrcmp(t *testing.T) {
	c := generateC(t, `program p is string s; bool b; begin s := "hi"; b := (s != "hi"); return; end program`, 0)
	if !strings.Contains(c, `strcmp(s, "hi") != 0`) {
		t.Fatalf("expected string != to compile to a strcmp comparison, got:\n%s", c)
	}
}

func TestGenerateBoolArrayBroadcastCallsValidateBooleanOp(t *testing.T) {
	c := generateC(t, `program p is bool a[3]; bool b[3]; bool c[3]; begin c := a & b; return; end program`, 0)
	if !strings.Contains(c, "validateBooleanOp(") {
		t.Fatalf("expected a bool array broadcast of & to call validateBooleanOp, got:\n%s", c)
	}
}

func TestGenerateGetStringAllocatesBufferTemp(t *testing.T) {
	c := generateC(t, `program p is string s; begin s := getString(); return; end program`, 0)
	if !strings.Contains(c, "getString(_t0);") {
		t.Fatalf("expected getString to be called with a buffer temp, got:\n%s", c)
	}
}

func TestGenerateGlobalInsideProcedureBecomesFileScope(t *testing.T) {
	c := generateC(t, `program p is
		procedure setter() global int shared; begin shared := 1; return; end procedure;
	begin
		setter();
		return;
	end program`, 0)
	idx := strings.Index(c, "void setter(void) {")
	if idx == -1 {
		t.Fatalf("expected a setter procedure, got:\n%s", c)
	}
	if !strings.Contains(c[:idx], "int shared;") {
		t.Fatalf("expected shared to be declared as a file-scope global before setter, got:\n%s", c)
	}
}

func TestGenerateForwardDeclarationsPrecedeGlobals(t *testing.T) {
	c := generateC(t, `program p is
		int x;
		procedure f() begin return; end procedure;
	begin
		f();
		return;
	end program`, 0)
	declIdx := strings.Index(c, "void f(void);")
	globalIdx := strings.Index(c, "int x;")
	if declIdx == -1 || globalIdx == -1 || declIdx > globalIdx {
		t.Fatalf("expected the forward declaration of f before the global x, got:\n%s", c)
	}
}
