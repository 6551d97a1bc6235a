package dnsmasq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/mirkobrombin/dnsforge/internal/logger"
)

// ErrBufSize bounds the diagnostic kept from the resolver's output. Only the
// last read survives, which holds the final (most relevant) message.
const ErrBufSize = 1024

// ValidationOutcome is the result of one test run of the resolver's parser.
type ValidationOutcome struct {
	ExitCode   int
	Crashed    bool // terminated by a signal
	Signal     syscall.Signal
	CoreDumped bool
	Diagnostic string
}

// OK reports whether the resolver accepted the configuration. A crashed run
// is never OK, whatever its exit code.
func (o ValidationOutcome) OK() bool {
	return o.ExitCode == 0 && !o.Crashed
}

func (o ValidationOutcome) String() string {
	switch {
	case o.Crashed:
		core := ""
		if o.CoreDumped {
			core = " (core dumped)"
		}
		return fmt.Sprintf("resolver test crashed with signal %d%s", int(o.Signal), core)
	case o.ExitCode != 0:
		return fmt.Sprintf("resolver test exited with code %d: %s", o.ExitCode, o.Diagnostic)
	default:
		return "resolver test passed"
	}
}

// Validator runs the resolver's own option parser against a config file.
type Validator struct {
	// Binary is the resolver executable, e.g. "dnsmasq" or "pihole-FTL".
	Binary string
	// Env replaces the child's environment when non-nil.
	Env    []string
	Logger *logger.Logger
}

// NewValidator returns a Validator for binary.
func NewValidator(binary string, log *logger.Logger) *Validator {
	return &Validator{Binary: binary, Logger: log}
}

// Validate starts the resolver with exactly three arguments
// (placeholder, --conf-file=<path>, --test) and its stdout and stderr
// merged into one pipe. The returned error is set only for environment
// failures (pipe or process creation); a rejected configuration is reported
// through the outcome.
//
// The call blocks until the output is drained and the child has exited.
// ctx may cancel the child, which then counts as a crash.
func (v *Validator) Validate(ctx context.Context, confPath string) (ValidationOutcome, error) {
	log := v.Logger
	if log == nil {
		log = logger.Nop()
	}
	var outcome ValidationOutcome

	pr, pw, err := os.Pipe()
	if err != nil {
		return outcome, fmt.Errorf("cannot create pipe while testing new dnsmasq config: %w", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, v.Binary)
	cmd.Args = []string{"X", "--conf-file=" + confPath, "--test"}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if v.Env != nil {
		cmd.Env = v.Env
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return outcome, fmt.Errorf("cannot start %s: %w", v.Binary, err)
	}
	// The child owns its copy of the write end; closing ours lets the read
	// below see EOF as soon as the child exits.
	pw.Close()

	diag, readErr := drainLast(pr, log)
	if readErr != nil {
		log.Warnf("Reading dnsmasq test output failed: %v", readErr)
	}
	outcome.Diagnostic = diag

	waitErr := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				outcome.Crashed = true
				outcome.Signal = status.Signal()
				outcome.CoreDumped = status.CoreDump()
				log.Errorf("dnsmasq test failed with signal %d %s",
					int(outcome.Signal), coreNote(outcome.CoreDumped))
			}
		}
	default:
		return outcome, fmt.Errorf("waiting for %s: %w", v.Binary, waitErr)
	}

	log.Debugf("Code: %d", outcome.ExitCode)
	return outcome, nil
}

// drainLast reads r until EOF, keeping only the bytes of the last read. One
// leading and one trailing newline are stripped from what is kept.
func drainLast(r io.Reader, log *logger.Logger) (string, error) {
	buf := make([]byte, ErrBufSize)
	var last string
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := bytes.TrimPrefix(buf[:n], []byte("\n"))
			last = string(bytes.TrimSuffix(chunk, []byte("\n")))
			log.Debugf("dnsmasq pipe: %s", last)
		}
		if err == io.EOF {
			return last, nil
		}
		if err != nil {
			return last, err
		}
	}
}

func coreNote(dumped bool) string {
	if dumped {
		return "(core dumped)"
	}
	return ""
}
