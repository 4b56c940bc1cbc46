package camera

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Runner launches a prepared invocation, waits for it and returns what it
// wrote to stderr.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (stderr string, err error)
}

// ShellRunner passes Invocation.Line to a shell, so the stream redirect
// works and unescaped values are interpreted by the shell.
type ShellRunner struct {
	Shell string // defaults to "sh"
}

func (r ShellRunner) Run(ctx context.Context, inv Invocation) (string, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", inv.Line)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// ExecRunner starts the utility directly from Invocation.Args, with no
// shell in between. A stream target becomes the process stdout.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) (string, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)

	if inv.Stdout != "" {
		f, err := os.Create(inv.Stdout)
		if err != nil {
			return "", fmt.Errorf("open stream target: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// RunnerFor returns the runner for an exec mode name: "argv" selects
// ExecRunner, anything else ShellRunner.
func RunnerFor(mode string) Runner {
	if mode == "argv" {
		return ExecRunner{}
	}
	return ShellRunner{}
}
