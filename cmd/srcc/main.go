// Command srcc compiles a SRC source file into a native executable by
// running the pkg/srclang pipeline and invoking a conventional C toolchain.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"srcc/pkg/config"
	"srcc/pkg/diagnostics"
	"srcc/pkg/driver"
)

func main() {
	app := cli.NewApp()
	app.Name = "srcc"
	app.Usage = "compile a SRC program to a native executable"
	app.ArgsUsage = "filename"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "o", Usage: "output executable `NAME` (default derived from input)"},
		cli.IntFlag{Name: "O", Value: -1, Usage: "optimisation level `{0,1,2}` (default 0)"},
		cli.BoolFlag{Name: "R, no-runtime", Usage: "emit C without linking the runtime stubs"},
		cli.BoolFlag{Name: "c", Usage: "stop after emitting C (do not invoke the toolchain)"},
		cli.BoolFlag{Name: "v, verbose-assembly", Usage: "annotate emitted C with source line comments"},
		cli.StringFlag{Name: "emit", Usage: "print an intermediate stage and stop: tokens, ast, typed, symtab, optimised, c"},
		cli.StringFlag{Name: "config", Value: "srcc.toml", Usage: "path to a project defaults file"},
		cli.StringFlag{Name: "color", Value: "auto", Usage: "diagnostic coloring: auto, always, never"},
	}
	app.Action = compile

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compile(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("srcc: expected exactly one input filename", 1)
	}
	input := ctx.Args().Get(0)

	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("srcc: %s", err), 2)
	}

	opts := driver.Options{
		InputPath: input,
		OutputExe: ctx.String("o"),
		OptLevel:  cfg.OptLevel,
		NoRuntime: cfg.NoRuntime,
		StopAtC:   ctx.Bool("c"),
		Verbose:   cfg.Verbose,
		CC:        cfg.CC,
		Emit:      driver.Emit(ctx.String("emit")),
	}
	if ctx.IsSet("O") {
		opts.OptLevel = ctx.Int("O")
	}
	if ctx.Bool("R") {
		opts.NoRuntime = true
	}
	if ctx.Bool("v") {
		opts.Verbose = true
	}

	mode := diagnostics.ColorAuto
	switch ctx.String("color") {
	case "always":
		mode = diagnostics.ColorAlways
	case "never":
		mode = diagnostics.ColorNever
	}
	reporter := diagnostics.NewReporter(os.Stderr, mode)

	result, runErr := driver.Run(opts)
	if runErr != nil {
		reporter.Report(runErr)
		os.Exit(driver.ExitCode(runErr))
	}
	if result.HasDump {
		fmt.Println(result.Dump)
	}
	return nil
}
