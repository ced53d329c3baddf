package launcher

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/simsup/simsup/internal/errors"
	"github.com/simsup/simsup/internal/protocol"
)

// TestHelperSimulator is not a real test. It is re-executed by ExecLauncher
// tests as the simulator binary: it connects back over the control socket,
// performs the readiness handshake, and answers commands until its stdin-side
// parent disappears. Behavior is selected with SIMSUP_TEST_BEHAVIOR.
func TestHelperSimulator(t *testing.T) {
	if os.Getenv("SIMSUP_TEST_HELPER") != "1" {
		return
	}
	defer os.Exit(0)

	behavior := os.Getenv("SIMSUP_TEST_BEHAVIOR")
	if behavior == "never-ready" {
		time.Sleep(time.Minute)
		return
	}

	conn, err := net.Dial("unix", os.Getenv(ControlSocketEnv))
	if err != nil {
		os.Exit(1)
	}
	defer conn.Close()

	ready := protocol.Message{Kind: protocol.KindReady, ConfigOK: true}
	if behavior == "reject-config" {
		ready.ConfigOK = false
		ready.Reason = "unsupported target"
	}
	if err := protocol.WriteFrame(conn, ready); err != nil {
		os.Exit(1)
	}
	if !ready.ConfigOK {
		return
	}

	for {
		_, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		resp := protocol.Message{Kind: protocol.KindAck}
		if behavior == "nack-commands" {
			resp = protocol.Message{Kind: protocol.KindNack, Reason: "refusing on request"}
		}
		if err := protocol.WriteFrame(conn, resp); err != nil {
			return
		}
	}
}

// helperLauncher builds an ExecLauncher whose "simulator binary" is this
// test binary re-executing TestHelperSimulator.
func helperLauncher(t *testing.T, behavior string, opts Options) *ExecLauncher {
	t.Helper()
	t.Setenv("SIMSUP_TEST_HELPER", "1")
	t.Setenv("SIMSUP_TEST_BEHAVIOR", behavior)

	opts.Binary = os.Args[0]
	opts.Args = []string{"-test.run=TestHelperSimulator", "--"}
	return NewExecLauncher(opts, nil)
}

func TestExecLaunchReady(t *testing.T) {
	l := helperLauncher(t, "", Options{LaunchTimeout: 10 * time.Second})
	project := t.TempDir()

	proc, ch, err := l.Launch(context.Background(), project, project+"/cfg.yaml")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer func() {
		_ = ch.Close()
		_ = proc.Kill()
		_ = proc.Wait()
	}()

	if proc.PID() <= 0 {
		t.Errorf("PID = %d, want > 0", proc.PID())
	}
	if !proc.Alive() {
		t.Error("Alive = false immediately after launch")
	}

	if err := ch.Send(context.Background(), protocol.KindRun); err != nil {
		t.Errorf("Send(run): %v", err)
	}
	if err := ch.Send(context.Background(), protocol.KindReset); err != nil {
		t.Errorf("Send(reset): %v", err)
	}
}

func TestExecLaunchKilledProcessIsDead(t *testing.T) {
	l := helperLauncher(t, "", Options{LaunchTimeout: 10 * time.Second})
	project := t.TempDir()

	proc, ch, err := l.Launch(context.Background(), project, project+"/cfg.yaml")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer ch.Close()

	if err := proc.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	_ = proc.Wait()

	if proc.Alive() {
		t.Error("Alive = true after kill and reap")
	}
	if err := ch.Send(context.Background(), protocol.KindRun); !errors.Is(err, errors.ErrChannel) && !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("Send to dead simulator = %v, want channel or timeout error", err)
	}
}

func TestExecLaunchSpawnFailed(t *testing.T) {
	l := NewExecLauncher(Options{Binary: "/nonexistent/simulator-binary"}, nil)

	_, _, err := l.Launch(context.Background(), t.TempDir(), "cfg.yaml")
	if !errors.Is(err, errors.ErrSpawnFailed) {
		t.Fatalf("Launch = %v, want ErrSpawnFailed", err)
	}
}

func TestExecLaunchMissingProjectDir(t *testing.T) {
	l := helperLauncher(t, "", Options{LaunchTimeout: 10 * time.Second})

	_, _, err := l.Launch(context.Background(), "/nonexistent/project/dir", "cfg.yaml")
	if !errors.Is(err, errors.ErrSpawnFailed) {
		t.Fatalf("Launch = %v, want ErrSpawnFailed", err)
	}
}

func TestExecLaunchNoBinaryConfigured(t *testing.T) {
	l := NewExecLauncher(Options{}, nil)

	_, _, err := l.Launch(context.Background(), t.TempDir(), "cfg.yaml")
	if !errors.Is(err, errors.ErrSpawnFailed) {
		t.Fatalf("Launch = %v, want ErrSpawnFailed", err)
	}
}

func TestExecLaunchTimeout(t *testing.T) {
	l := helperLauncher(t, "never-ready", Options{LaunchTimeout: 200 * time.Millisecond})

	_, _, err := l.Launch(context.Background(), t.TempDir(), "cfg.yaml")
	if !errors.Is(err, errors.ErrLaunchTimeout) {
		t.Fatalf("Launch = %v, want ErrLaunchTimeout", err)
	}
}

func TestExecLaunchConfigRejected(t *testing.T) {
	l := helperLauncher(t, "reject-config", Options{LaunchTimeout: 10 * time.Second})

	_, _, err := l.Launch(context.Background(), t.TempDir(), "cfg.yaml")
	if !errors.Is(err, errors.ErrConfigRejected) {
		t.Fatalf("Launch = %v, want ErrConfigRejected", err)
	}
}

func TestExecLaunchCancelled(t *testing.T) {
	l := helperLauncher(t, "never-ready", Options{LaunchTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, _, err := l.Launch(ctx, t.TempDir(), "cfg.yaml")
	if !errors.Is(err, errors.ErrCancelled) {
		t.Fatalf("Launch = %v, want ErrCancelled", err)
	}
}

func TestExecLaunchNackedCommands(t *testing.T) {
	l := helperLauncher(t, "nack-commands", Options{LaunchTimeout: 10 * time.Second})
	project := t.TempDir()

	proc, ch, err := l.Launch(context.Background(), project, project+"/cfg.yaml")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer func() {
		_ = ch.Close()
		_ = proc.Kill()
		_ = proc.Wait()
	}()

	if err := ch.Send(context.Background(), protocol.KindRun); !errors.Is(err, errors.ErrCommandRejected) {
		t.Errorf("Send = %v, want ErrCommandRejected", err)
	}
}
