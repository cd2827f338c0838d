package cmip6

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Args are the command line arguments handed to the CV validator.
type Args struct {
	Variable  string
	TableFile string
	InputFile string
}

// Argv renders the arguments the way PrePARE expects them on its command
// line.
func (a Args) Argv() []string {
	return []string{"--variable", a.Variable, a.TableFile, a.InputFile}
}

// CVValidator creates the controlled vocabulary check for one file.
// A nil process with a nil error means the checker could not be created.
type CVValidator interface {
	CheckCMIP6(ctx context.Context, args Args) (CVProcess, error)
}

// CVProcess runs the controlled vocabulary check.
type CVProcess interface {
	ControlVocab(ctx context.Context) error
}

// ExecValidator runs the PrePARE executable.
type ExecValidator struct {
	Command string
}

// NewExecValidator runs command, or PrePARE when command is empty.
func NewExecValidator(command string) *ExecValidator {
	if command == "" {
		command = "PrePARE"
	}
	return &ExecValidator{Command: command}
}

// CheckCMIP6 returns a nil process when the executable is not on PATH.
func (v *ExecValidator) CheckCMIP6(ctx context.Context, args Args) (CVProcess, error) {
	path, err := exec.LookPath(v.Command)
	if err != nil {
		return nil, nil
	}

	if _, err := os.Stat(args.TableFile); err != nil {
		return nil, fmt.Errorf("cmor table %s: %w", args.TableFile, err)
	}
	if _, err := os.Stat(args.InputFile); err != nil {
		return nil, fmt.Errorf("input file %s: %w", args.InputFile, err)
	}

	return &execProcess{path: path, args: args}, nil
}

type execProcess struct {
	path string
	args Args
}

func (p *execProcess) ControlVocab(ctx context.Context) error {
	var out bytes.Buffer

	cmd := exec.CommandContext(ctx, p.path, p.args.Argv()...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.path, err, strings.TrimSpace(out.String()))
	}
	return nil
}
