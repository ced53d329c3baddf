package launcher

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/simsup/simsup/internal/errors"
	"github.com/simsup/simsup/internal/logging"
	"github.com/simsup/simsup/internal/protocol"
)

// DefaultLaunchTimeout bounds how long Launch waits for the simulator to
// connect back and signal readiness.
const DefaultLaunchTimeout = 30 * time.Second

// Options configures an ExecLauncher.
type Options struct {
	// Binary is the path to the simulator executable.
	Binary string

	// Args are extra arguments passed to the simulator before the project
	// and config arguments.
	Args []string

	// SocketDir is the directory for control sockets. Defaults to the OS
	// temp directory. Unix socket paths are length-limited, so this should
	// be a short path.
	SocketDir string

	// LaunchTimeout bounds the readiness handshake (default 30s).
	LaunchTimeout time.Duration

	// CommandTimeout bounds each command exchange on the resulting channel
	// (default 10s).
	CommandTimeout time.Duration
}

// ExecLauncher spawns real simulator processes with os/exec and talks to
// them over a unix domain control socket.
type ExecLauncher struct {
	opts   Options
	logger *logging.Logger
}

// NewExecLauncher creates an ExecLauncher. A nil logger disables logging.
func NewExecLauncher(opts Options, logger *logging.Logger) *ExecLauncher {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.SocketDir == "" {
		opts.SocketDir = os.TempDir()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &ExecLauncher{opts: opts, logger: logger}
}

// Launch spawns the simulator for the given project and config paths,
// completes the readiness handshake, and returns the live process and its
// control channel. On any failure the spawned process (if any) is killed and
// reaped before returning.
func (l *ExecLauncher) Launch(ctx context.Context, projectPath, configPath string) (Process, Channel, error) {
	if l.opts.Binary == "" {
		return nil, nil, errors.Wrap(errors.ErrSpawnFailed, "no simulator binary configured")
	}

	sockPath := filepath.Join(l.opts.SocketDir, "simsup-"+uuid.NewString()[:8]+".sock")
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrSpawnFailed, "failed to create control socket: %v", err)
	}
	// The listener unlinks the socket file on Close.
	defer listener.Close()

	args := make([]string, 0, len(l.opts.Args)+4)
	args = append(args, l.opts.Args...)
	args = append(args, "--project", projectPath, "--config", configPath)

	cmd := exec.Command(l.opts.Binary, args...)
	cmd.Dir = projectPath
	cmd.Env = append(os.Environ(), ControlSocketEnv+"="+sockPath)

	if err := cmd.Start(); err != nil {
		return nil, nil, errors.NewSimulatorError("failed to spawn simulator", errors.ErrSpawnFailed).
			WithPath(projectPath)
	}

	proc := &OSProcess{cmd: cmd}
	log := l.logger.WithPID(proc.PID())
	log.Debug("simulator spawned",
		"binary", l.opts.Binary,
		"project", projectPath,
		"config", configPath,
		"socket", sockPath)

	conn, err := l.awaitConnection(ctx, listener)
	if err != nil {
		l.abandon(proc)
		return nil, nil, err
	}

	if err := l.awaitReady(ctx, conn); err != nil {
		_ = conn.Close()
		l.abandon(proc)
		return nil, nil, err
	}

	log.Info("simulator ready",
		"project", projectPath,
		"config", configPath)

	return proc, NewChannel(conn, l.opts.CommandTimeout), nil
}

// awaitConnection waits for the child to connect to the control socket.
func (l *ExecLauncher) awaitConnection(ctx context.Context, listener net.Listener) (net.Conn, error) {
	ul, ok := listener.(*net.UnixListener)
	if !ok {
		return nil, errors.Wrap(errors.ErrChannel, "control listener is not a unix socket")
	}

	deadline := time.Now().Add(l.opts.LaunchTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ul.SetDeadline(deadline); err != nil {
		return nil, errors.Wrap(errors.ErrChannel, "failed to arm handshake deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		_ = ul.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := ul.Accept()
	if err != nil {
		return nil, l.handshakeError(ctx, err)
	}
	return conn, nil
}

// awaitReady reads the simulator's initial ready frame and checks that the
// configuration was accepted.
func (l *ExecLauncher) awaitReady(ctx context.Context, conn net.Conn) error {
	deadline := time.Now().Add(l.opts.LaunchTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return errors.Wrap(errors.ErrChannel, "failed to arm handshake deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	msg, err := protocol.ReadFrame(conn)
	if err != nil {
		return l.handshakeError(ctx, err)
	}
	if msg.Kind != protocol.KindReady {
		return errors.Wrapf(errors.ErrChannel, "expected ready frame, got %q", msg.Kind)
	}
	if !msg.ConfigOK {
		return errors.Wrapf(errors.ErrConfigRejected, "reason: %s", msg.Reason)
	}

	// Clear the handshake deadline; the channel manages its own.
	return conn.SetReadDeadline(time.Time{})
}

// handshakeError classifies a failed handshake step.
func (l *ExecLauncher) handshakeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
		return errors.Wrap(errors.ErrCancelled, "launch cancelled")
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return errors.NewSimulatorError("simulator did not become ready", errors.ErrLaunchTimeout)
	}
	return errors.Wrapf(errors.ErrChannel, "control channel establishment failed: %v", err)
}

// abandon kills and reaps a process whose launch failed, so no orphan is
// left behind.
func (l *ExecLauncher) abandon(proc *OSProcess) {
	if err := proc.Kill(); err != nil {
		l.logger.Warn("failed to kill abandoned simulator",
			"pid", proc.PID(),
			"error", err.Error())
	}
	_ = proc.Wait()
}

// OSProcess is a Process backed by a real OS process.
type OSProcess struct {
	cmd      *exec.Cmd
	exited   atomic.Bool
	waitOnce sync.Once
	waitErr  error
}

// PID returns the OS process identifier.
func (p *OSProcess) PID() int {
	return p.cmd.Process.Pid
}

// Alive reports whether the process is still running. Once the process has
// been reaped, Alive is false even if the OS has recycled the PID.
func (p *OSProcess) Alive() bool {
	if p.exited.Load() {
		return false
	}
	err := unix.Kill(p.cmd.Process.Pid, 0)
	// EPERM means the process exists but belongs to another user.
	return err == nil || err == unix.EPERM
}

// Kill forcefully terminates the process. Killing an already-exited process
// is not an error.
func (p *OSProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if err != nil && errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Wait blocks until the process exits and reaps it. Wait may be called from
// multiple goroutines; all callers observe the same result.
func (p *OSProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.exited.Store(true)
	})
	return p.waitErr
}
