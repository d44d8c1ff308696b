package thrush

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// DefaultTool is the binary name the default invoker runs, resolved
// through PATH with the inherited environment.
const DefaultTool = "rrdtool"

// Invoker runs the external tool. The default implementation shells out
// to the rrdtool binary; tests substitute a fake via Definition.Invoker
// or SchemaBuilder.WithInvoker.
type Invoker interface {
	// Run executes `rrdtool <command> <path> <args...>`, waits for the
	// process to exit and returns its captured stdout. A non-zero exit
	// returns a *ToolError carrying the exit code and stderr text.
	Run(ctx context.Context, command, path string, args ...string) ([]byte, error)

	// Stream executes the same invocation but returns as soon as the
	// process is started, handing back a live line stream over its
	// stdout. Exit status is folded into the stream: a non-zero exit
	// surfaces as a *ToolError from the first Next call that observes
	// the process dead.
	Stream(ctx context.Context, command, path string, args ...string) (LineStream, error)
}

// LineStream delivers tool output one line at a time, newline stripped.
// Next returns io.EOF after the process ends cleanly and a *ToolError
// once a non-zero exit is observed; lines delivered before the failure
// remain valid. A final line without a trailing newline is still
// delivered. Streams are single-consumer and must be closed.
type LineStream interface {
	Next() (string, error)
	Close() error
}

// toolInvoker is the default Invoker.
type toolInvoker struct {
	tool string
}

// NewToolInvoker returns an Invoker running the named binary. An empty
// name selects DefaultTool.
func NewToolInvoker(tool string) Invoker {
	if tool == "" {
		tool = DefaultTool
	}
	return &toolInvoker{tool: tool}
}

// defaultInvoker is shared by every schema that does not bring its own;
// the implementation is stateless.
func defaultInvoker() Invoker {
	return sharedInvoker
}

var sharedInvoker = &toolInvoker{tool: DefaultTool}

func (ti *toolInvoker) argv(command, path string, args []string) []string {
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, command, path)
	return append(argv, args...)
}

func (ti *toolInvoker) Run(ctx context.Context, command, path string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, ti.tool, ti.argv(command, path, args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, newToolError(command, exitErr.ExitCode(), stderr.String(), exitErr)
		}
		return nil, fmt.Errorf("run %s %s: %w", ti.tool, command, err)
	}
	return stdout.Bytes(), nil
}

func (ti *toolInvoker) Stream(ctx context.Context, command, path string, args ...string) (LineStream, error) {
	cmd := exec.CommandContext(ctx, ti.tool, ti.argv(command, path, args)...)

	// exec drains stderr into the buffer on its own goroutine from Start
	// on, so a chatty tool never blocks the stdout pipe. The buffer is
	// read only after Wait has returned.
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("run %s %s: %w", ti.tool, command, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("run %s %s: %w", ti.tool, command, err)
	}

	return &toolStream{
		ctx:     ctx,
		command: command,
		cmd:     cmd,
		reader:  bufio.NewReader(stdout),
		stderr:  stderr,
	}, nil
}

// toolStream reads a running process line by line. The child closes its
// end of the stdout pipe when it dies, so the read after the last line
// always observes the process state: a read hitting pipe EOF reaps the
// process and turns its exit status into the stream outcome. Wait is
// only ever called after reads are done, never concurrently with them.
type toolStream struct {
	ctx     context.Context
	command string
	cmd     *exec.Cmd
	reader  *bufio.Reader
	stderr  *bytes.Buffer

	waitOnce sync.Once
	waitErr  error

	closed   bool
	finalErr error
}

func (s *toolStream) Next() (string, error) {
	if s.closed {
		return "", ErrResultClosed
	}
	if s.finalErr != nil {
		return "", s.finalErr
	}

	line, err := s.reader.ReadString('\n')
	if err == nil {
		return strings.TrimSuffix(line, "\n"), nil
	}

	s.finalErr = s.outcome(err)
	if errors.Is(err, io.EOF) && line != "" {
		// Final line without a trailing newline: deliver it now, report
		// the outcome on the next call.
		return line, nil
	}
	return "", s.finalErr
}

// outcome reaps the process and folds its exit status into the stream
// result.
func (s *toolStream) outcome(readErr error) error {
	s.wait()
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}
	if s.waitErr == nil {
		if !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read %s output: %w", s.command, readErr)
		}
		return io.EOF
	}
	var exitErr *exec.ExitError
	if errors.As(s.waitErr, &exitErr) {
		return newToolError(s.command, exitErr.ExitCode(), s.stderr.String(), exitErr)
	}
	return fmt.Errorf("wait for %s: %w", s.command, s.waitErr)
}

func (s *toolStream) wait() {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
}

// Close kills the process if it is still running and reaps it. It is
// idempotent; after Close, Next returns ErrResultClosed.
func (s *toolStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.wait()
	return nil
}
