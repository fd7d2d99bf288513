package observability

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestShutdownManager_RunsRegisteredFuncs(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), nil, time.Second)

	var called atomic.Bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		called.Store(true)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- sm.WaitForShutdown() }()

	// Let WaitForShutdown install its signal handler before signaling.
	time.Sleep(50 * time.Millisecond)
	syscall.Kill(os.Getpid(), syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("WaitForShutdown error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
	if !called.Load() {
		t.Error("registered shutdown func was not called")
	}
}

func TestShutdownManager_TimesOutOnStuckFunc(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), nil, 100*time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		// Ignores ctx on purpose; the manager must not wait forever.
		<-block
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- sm.WaitForShutdown() }()

	time.Sleep(50 * time.Millisecond)
	syscall.Kill(os.Getpid(), syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("WaitForShutdown returned nil, want timeout error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown hung past its shutdown timeout")
	}
}
