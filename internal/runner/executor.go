package runner

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
)

// Executor runs one notebook, writing its console output to stdout/stderr
type Executor interface {
	Execute(ctx context.Context, input, output string, params map[string]string, stdout, stderr io.Writer) error
}

// PapermillExecutor shells out to the papermill CLI
type PapermillExecutor struct {
	Bin       string
	ExtraArgs []string
}

// NewPapermillExecutor creates an executor for the given papermill binary
func NewPapermillExecutor(bin string) *PapermillExecutor {
	if bin == "" {
		bin = "papermill"
	}
	return &PapermillExecutor{Bin: bin}
}

// Args builds the papermill argument list: <in> <out> -p k v ... [extra]
func (e *PapermillExecutor) Args(input, output string, params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{input, output}
	for _, k := range keys {
		args = append(args, "-p", k, params[k])
	}
	return append(args, e.ExtraArgs...)
}

// Execute implements Executor
func (e *PapermillExecutor) Execute(ctx context.Context, input, output string, params map[string]string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, e.Bin, e.Args(input, output, params)...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("papermill %s: %w", filepath.Base(input), err)
	}
	return nil
}
