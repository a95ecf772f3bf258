package notify

import (
	"context"
	"testing"
	"time"
)

func TestChanSignalThenWait(t *testing.T) {
	d := NewChan()
	defer d.Close()

	if err := d.Signal(); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestChanCoalesce(t *testing.T) {
	d := NewChan()
	defer d.Close()

	// Many signals between waits must collapse into a single wake
	for i := 0; i < 100; i++ {
		if err := d.Signal(); err != nil {
			t.Fatalf("Signal %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	// Second wait must block until cancelled: no queued signals remain
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if err := d.Wait(ctx2); err == nil {
		t.Error("second Wait returned without a pending signal")
	}
}

func TestChanWaitCancel(t *testing.T) {
	d := NewChan()
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Wait(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Wait returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestChanCrossGoroutineWake(t *testing.T) {
	d := NewChan()
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.Wait(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := d.Signal(); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}
