package driver

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"srcc/pkg/diagnostics"
)

// ToolchainError wraps a diagnostics.Error{Kind: IO} raised specifically by
// launching or running the C toolchain, so driver.ExitCode can distinguish
// it from an ordinary file I/O error and report exit code 3 instead of 2,
// per section 6.
type ToolchainError struct {
	Err *diagnostics.Error
}

func (e *ToolchainError) Error() string { return e.Err.Error() }
func (e *ToolchainError) Unwrap() error { return e.Err }

// resolveCC picks the C compiler binary: an explicit opts.CC, then $CC,
// then "cc", matching common practice for shelling out to a system
// toolchain.
func resolveCC(opts Options) string {
	if opts.CC != "" {
		return opts.CC
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}

// invokeToolchain links cPath (and, unless -R was given, runtime/runtime.c)
// into exePath. A colliding-safe temporary object file name is generated
// with github.com/google/uuid so concurrent invocations from the same
// directory never clash.
func invokeToolchain(cPath, exePath string, opts Options) error {
	cc := resolveCC(opts)
	objPath := fmt.Sprintf(".srcc-%s.o", uuid.NewString())
	defer os.Remove(objPath)

	if err := run(cc, "-m32", "-c", cPath, "-o", objPath); err != nil {
		return &ToolchainError{Err: &diagnostics.Error{
			Kind: diagnostics.IO,
			File: cPath,
			Msg:  fmt.Sprintf("C toolchain invocation failed: %s", err),
		}}
	}

	linkArgs := []string{"-m32", "-o", exePath, objPath}
	if !opts.NoRuntime {
		linkArgs = append(linkArgs, "runtime/runtime.c")
	}
	if err := run(cc, linkArgs...); err != nil {
		return &ToolchainError{Err: &diagnostics.Error{
			Kind: diagnostics.IO,
			File: exePath,
			Msg:  fmt.Sprintf("C toolchain invocation failed: %s", err),
		}}
	}
	return nil
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
