package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNotifyContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := NotifyContext(parent)
	defer stop()

	if Interrupted(ctx) {
		t.Fatal("fresh context must not read as interrupted")
	}

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
	if !Interrupted(ctx) {
		t.Error("cancelled context must read as interrupted")
	}
}

func TestNotifyContextStop(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())
	stop()
	// stop detaches signal delivery and cancels the context, so deferred
	// stops leave nothing behind.
	if ctx.Err() == nil {
		t.Error("stop must cancel the context")
	}
}

func TestManagerRunsCleanupsInReverseOrder(t *testing.T) {
	mgr := New(time.Second)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		mgr.Register(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	if err := mgr.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int{3, 2, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("cleanup order = %v, want %v", order, want)
		}
	}
}

func TestManagerKeepsRunningAfterCleanupError(t *testing.T) {
	mgr := New(time.Second)
	boom := errors.New("close failed")

	ran := false
	mgr.Register(func(context.Context) error {
		ran = true
		return nil
	})
	mgr.Register(func(context.Context) error { return boom })

	if err := mgr.Run(); !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want %v", err, boom)
	}
	if !ran {
		t.Error("cleanup after the failing one must still run")
	}
}
