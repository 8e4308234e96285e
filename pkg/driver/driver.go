// Package driver orchestrates a full compilation run: read source, run the
// pkg/srclang pipeline, write the emitted C, and optionally invoke the C
// toolchain.
package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"srcc/pkg/diagnostics"
	"srcc/pkg/srclang"
	"srcc/pkg/utils"
)

// Emit selects which pipeline stage's inspection dump Run should render
// instead of completing the full compile.
type Emit string

const (
	EmitNone      Emit = ""
	EmitTokens    Emit = "tokens"
	EmitAST       Emit = "ast"
	EmitTyped     Emit = "typed"
	EmitSymtab    Emit = "symtab"
	EmitOptimised Emit = "optimised"
	EmitC         Emit = "c"
)

// Options is the fully-resolved set of driver inputs: CLI flags layered
// over any config.Config defaults.
type Options struct {
	InputPath string
	OutputExe string // -o; empty derives from InputPath
	OptLevel  int    // -O
	NoRuntime bool   // -R / --no-runtime
	StopAtC   bool   // -c
	Verbose   bool   // -v / --verbose-assembly
	Emit      Emit
	CC        string // C compiler binary, resolved from $CC or config
}

// Result reports what Run produced. Dump is populated only when
// opts.Emit != EmitNone, in which case no C file or executable is written.
type Result struct {
	CPath    string
	ExePath  string
	Dump     string
	HasDump  bool
	RanBuild bool
}

// Run performs the pipeline in strict order: read -> scan -> parse -> check
// -> optimise -> generate -> write -> (optionally) link. A scan, parse or
// type-check error is returned wrapped with pkg/errors context; read, write
// and toolchain errors are returned as the bare *diagnostics.Error or
// *ToolchainError. Either way ExitCode can classify the result.
func Run(opts Options) (*Result, error) {
	inputPath, _, err := utils.ResolveInputPath(opts.InputPath)
	if err != nil {
		return nil, &diagnostics.Error{Kind: diagnostics.IO, File: opts.InputPath, Msg: err.Error()}
	}

	srcBytes, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, &diagnostics.Error{Kind: diagnostics.IO, File: opts.InputPath, Msg: err.Error()}
	}
	file := opts.InputPath

	toks, err := srclang.Lex(string(srcBytes), file)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "while scanning")
	}
	if opts.Emit == EmitTokens {
		return dumpResult(func(w *strings.Builder) { srclang.DumpTokens(w, toks) }), nil
	}

	prog, err := srclang.Parse(toks, file)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "while parsing")
	}
	if opts.Emit == EmitAST {
		return dumpResult(func(w *strings.Builder) { srclang.DumpAST(w, prog) }), nil
	}

	syms, err := srclang.Check(prog, file)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "while type-checking")
	}
	if opts.Emit == EmitTyped {
		return dumpResult(func(w *strings.Builder) { srclang.DumpAST(w, prog) }), nil
	}
	if opts.Emit == EmitSymtab {
		return dumpResult(func(w *strings.Builder) { srclang.DumpSymbolTable(w, syms) }), nil
	}

	prog = srclang.Optimize(prog, opts.OptLevel)
	if opts.Emit == EmitOptimised {
		return dumpResult(func(w *strings.Builder) { srclang.DumpAST(w, prog) }), nil
	}

	cSrc := srclang.Generate(prog, syms, opts.Verbose)
	if opts.Emit == EmitC {
		return &Result{Dump: cSrc, HasDump: true}, nil
	}

	cPath := derivedCPath(inputPath)
	if err := os.WriteFile(cPath, []byte(cSrc), 0o644); err != nil {
		return nil, &diagnostics.Error{Kind: diagnostics.IO, File: cPath, Msg: err.Error()}
	}
	result := &Result{CPath: cPath}
	if opts.StopAtC {
		return result, nil
	}

	exePath := opts.OutputExe
	if exePath == "" {
		exePath = derivedExePath(inputPath)
	}
	if err := invokeToolchain(cPath, exePath, opts); err != nil {
		return result, err
	}
	result.ExePath = exePath
	result.RanBuild = true
	os.Remove(cPath)
	return result, nil
}

func dumpResult(render func(w *strings.Builder)) *Result {
	var sb strings.Builder
	render(&sb)
	return &Result{Dump: sb.String(), HasDump: true}
}

func derivedCPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(filepath.Dir(inputPath), base+".c")
}

func derivedExePath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(filepath.Dir(inputPath), base)
}

// ExitCode maps err (as returned by Run) to the process exit code required
// by section 6: 3 for a toolchain-launch failure, otherwise whatever
// diagnostics.ExitCode reports for the wrapped diagnostics.Error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var tc *ToolchainError
	if errors.As(err, &tc) {
		return 3
	}
	return diagnostics.ExitCode(err)
}
