package host

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	modinput "github.com/shakeelmohamed/splunk-modinput-go"
)

// pipeGrace bounds how long the host keeps reading a finished process's
// pipes. A stray grandchild inheriting them must not hold a run open.
const pipeGrace = 2 * time.Second

// Command describes how to launch an input binary. Mode flags are chosen
// by the Runner; Args carries anything to pass after them.
type Command struct {
	Path    string
	Args    []string
	Env     []string
	Dir     string
	Timeout time.Duration
}

// StderrFunc receives each diagnostic line an input writes on its side
// channel, in arrival order.
type StderrFunc func(ctx context.Context, line string)

// Runner drives input binaries through the three protocol modes. The zero
// value is usable; Stderr and Logger default when nil.
type Runner struct {
	// Stderr is called once per side-channel line. When nil, lines are
	// forwarded to Logger at the level named by their severity token.
	Stderr StderrFunc

	Logger *slog.Logger
}

// NewRunner creates a Runner forwarding diagnostics to the default logger.
func NewRunner() *Runner {
	return &Runner{Logger: slog.Default()}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// process is one launched input subprocess. The host owns the parent ends
// of all three pipes.
type process struct {
	runID  string
	stdin  *os.File
	stdout *os.File
	stderr *os.File
	cancel context.CancelFunc
	waitCh chan error
}

// wait blocks until the process exits and returns its Wait error.
func (p *process) wait() error { return <-p.waitCh }

// launch spawns the input binary with the mode flag prepended to the
// command's own arguments. Each launch gets a fresh run ID for log
// correlation. Once the process exits, the read pipes are force-closed
// after pipeGrace so inherited descriptors cannot wedge the run.
func (r *Runner) launch(ctx context.Context, cmd Command, modeArgs ...string) (*process, context.Context, error) {
	runID := uuid.NewString()

	var cancel context.CancelFunc
	if cmd.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	spawnErr := func(msg string, err error, files ...*os.File) (*process, context.Context, error) {
		for _, f := range files {
			f.Close()
		}
		cancel()
		return nil, nil, &HostError{Kind: HostErrorSpawn, RunID: runID, Message: msg, Err: err}
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return spawnErr("open stdin pipe", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return spawnErr("open stdout pipe", err, stdinR, stdinW)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return spawnErr("open stderr pipe", err, stdinR, stdinW, stdoutR, stdoutW)
	}

	args := append(append([]string{}, modeArgs...), cmd.Args...)
	c := exec.CommandContext(ctx, cmd.Path, args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = stdinR
	c.Stdout = stdoutW
	c.Stderr = stderrW

	if err := c.Start(); err != nil {
		return spawnErr(fmt.Sprintf("start %s", cmd.Path), err, stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
	}
	// The child holds its own copies now.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	p := &process{
		runID:  runID,
		stdin:  stdinW,
		stdout: stdoutR,
		stderr: stderrR,
		cancel: cancel,
		waitCh: make(chan error, 1),
	}
	go func() {
		p.waitCh <- c.Wait()
		time.AfterFunc(pipeGrace, func() {
			stdoutR.Close()
			stderrR.Close()
		})
	}()
	return p, ctx, nil
}

// pumpStderr forwards side-channel lines to the configured callback until
// the pipe closes.
func (r *Runner) pumpStderr(ctx context.Context, p *process) error {
	fn := r.Stderr
	if fn == nil {
		logger := r.logger().With("run_id", p.runID)
		fn = func(ctx context.Context, line string) {
			level, message := splitSeverityLine(line)
			logger.Log(ctx, level, message)
		}
	}
	scanner := bufio.NewScanner(p.stderr)
	for scanner.Scan() {
		fn(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return &HostError{Kind: HostErrorIO, RunID: p.runID, Message: "read side channel", Err: err}
	}
	return nil
}

// splitSeverityLine maps a side-channel line's leading severity token onto
// an slog level, returning the remainder as the message. Lines without a
// known token pass through whole at INFO.
func splitSeverityLine(line string) (slog.Level, string) {
	token, rest, found := strings.Cut(line, " ")
	if !found {
		rest = ""
	}
	switch token {
	case modinput.SeverityDebug:
		return slog.LevelDebug, rest
	case modinput.SeverityInfo:
		return slog.LevelInfo, rest
	case modinput.SeverityWarn:
		return slog.LevelWarn, rest
	case modinput.SeverityError:
		return slog.LevelError, rest
	case modinput.SeverityFatal:
		return modinput.LevelFatal, rest
	}
	return slog.LevelInfo, line
}

// isBrokenPipe reports whether a stdin write failed only because the
// subprocess finished first, which is not a host-side failure.
func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// exitCode extracts the process exit code from a Wait error.
func exitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() >= 0 {
		return exit.ExitCode(), true
	}
	return 0, false
}

// RequestScheme launches the input with --scheme and parses the scheme
// document it advertises.
func (r *Runner) RequestScheme(ctx context.Context, cmd Command) (*modinput.Scheme, error) {
	p, ctx, err := r.launch(ctx, cmd, "--scheme")
	if err != nil {
		return nil, err
	}
	defer p.cancel()
	p.stdin.Close() // scheme mode never reads stdin

	var stdout bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pumpStderr(gctx, p) })
	g.Go(func() error {
		if _, err := io.Copy(&stdout, p.stdout); err != nil && !errors.Is(err, os.ErrClosed) {
			return &HostError{Kind: HostErrorIO, RunID: p.runID, Message: "read scheme document", Err: err}
		}
		return nil
	})
	pumpErr := g.Wait()
	waitErr := p.wait()

	if pumpErr != nil {
		return nil, pumpErr
	}
	if code, ok := exitCode(waitErr); !ok || code != 0 {
		return nil, &HostError{Kind: HostErrorExit, RunID: p.runID, Message: "scheme request failed", Err: waitErr}
	}
	if stdout.Len() == 0 {
		return nil, &HostError{Kind: HostErrorProtocol, RunID: p.runID, Message: "scheme request produced no document"}
	}
	scheme, err := modinput.ParseScheme(stdout.Bytes())
	if err != nil {
		return nil, &HostError{Kind: HostErrorProtocol, RunID: p.runID, Message: "unparseable scheme document", Err: err}
	}
	return scheme, nil
}

// errorResponse is the structured rejection document of validation mode.
type errorResponse struct {
	Message string `xml:"message"`
}

// Validate launches the input with --validate-arguments and feeds it the
// proposed configuration. Returns nil on acceptance, a
// *ValidationRejectedError when the input rejects the configuration, and
// a *HostError for everything else. Stdin stays open after the document:
// the protocol forbids the input from relying on EOF.
func (r *Runner) Validate(ctx context.Context, cmd Command, def *modinput.ValidationDefinition) error {
	doc, err := marshalValidationDefinition(def)
	if err != nil {
		return err
	}

	p, ctx, err := r.launch(ctx, cmd, "--validate-arguments")
	if err != nil {
		return err
	}
	defer p.cancel()
	defer p.stdin.Close()

	var stdout bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pumpStderr(gctx, p) })
	g.Go(func() error {
		if _, err := io.Copy(&stdout, p.stdout); err != nil && !errors.Is(err, os.ErrClosed) {
			return &HostError{Kind: HostErrorIO, RunID: p.runID, Message: "read validation response", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		if _, err := p.stdin.Write(doc); err != nil && !isBrokenPipe(err) {
			return &HostError{Kind: HostErrorIO, RunID: p.runID, Message: "write validation definition", Err: err}
		}
		return nil
	})
	pumpErr := g.Wait()
	waitErr := p.wait()

	if pumpErr != nil {
		return pumpErr
	}
	code, ok := exitCode(waitErr)
	if !ok {
		return &HostError{Kind: HostErrorExit, RunID: p.runID, Message: "validation run failed", Err: waitErr}
	}

	if stdout.Len() > 0 {
		var resp errorResponse
		if err := unmarshalErrorDoc(stdout.Bytes(), &resp); err != nil {
			return &HostError{Kind: HostErrorProtocol, RunID: p.runID, Message: "unparseable validation response", Err: err}
		}
		return &ValidationRejectedError{Message: resp.Message}
	}
	if code != 0 {
		return &HostError{Kind: HostErrorExit, RunID: p.runID, Message: "validation run exited nonzero without a rejection document", Err: waitErr}
	}
	// Silence on stdout plus exit 0 is the acceptance signal.
	return nil
}

// Stream launches the input with no arguments, feeds it the configuration,
// and invokes fn for each event until the stream ends or ctx is done. A
// non-nil error from fn kills the process and is returned as-is.
func (r *Runner) Stream(ctx context.Context, cmd Command, def *modinput.InputDefinition, fn func(Event) error) error {
	doc, err := marshalInputDefinition(def)
	if err != nil {
		return err
	}

	p, ctx, err := r.launch(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.cancel()
	defer p.stdin.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pumpStderr(gctx, p) })
	g.Go(func() error {
		if _, err := p.stdin.Write(doc); err != nil && !isBrokenPipe(err) {
			return &HostError{Kind: HostErrorIO, RunID: p.runID, Message: "write input definition", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		err := decodeEventStream(p.stdout, fn)
		if err != nil {
			// A kill tears the pipe mid-document; report the cause, not
			// the torn stream.
			var herr *HostError
			if errors.As(err, &herr) && gctx.Err() != nil {
				return gctx.Err()
			}
			// Stop the subprocess; the consumer is done with it.
			p.cancel()
		}
		return err
	})
	pumpErr := g.Wait()
	waitErr := p.wait()

	if pumpErr != nil {
		return pumpErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if code, ok := exitCode(waitErr); !ok || code != 0 {
		return &HostError{Kind: HostErrorExit, RunID: p.runID, Message: "input process failed", Err: waitErr}
	}
	return nil
}
