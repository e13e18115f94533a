package models_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/autofi/ai-engine/models"
	"github.com/rs/zerolog"
)

func TestRegistrySingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "artifact", nil
	}

	reg := models.New(zerolog.Nop(), map[string]models.Loader{"collab": loader})

	const k = 20
	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		go func() {
			defer wg.Done()
			_, _, err := reg.Load("collab")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(release)

	deadline := time.Now().Add(time.Second)
	for !reg.IsLoaded("collab") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one loader invocation across %d concurrent calls, got %d", k, got)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	reg := models.New(zerolog.Nop(), map[string]models.Loader{})
	_, _, err := reg.Load("nonexistent")
	if err == nil {
		t.Fatalf("expected error for unknown model name")
	}
}

func TestRegistryRetriesAfterFailure(t *testing.T) {
	var calls int32
	loader := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("boom")
		}
		return "artifact", nil
	}

	reg := models.New(zerolog.Nop(), map[string]models.Loader{"collab": loader})

	_, ready, err := reg.Load("collab")
	if err != nil || ready {
		t.Fatalf("first call should start a background load, got ready=%v err=%v", ready, err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond) // let the failed load's cleanup run

	_, ready, err = reg.Load("collab")
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if ready {
		t.Fatalf("expected retry to start a fresh background load, not be instantly ready")
	}

	deadline = time.Now().Add(time.Second)
	for !reg.IsLoaded("collab") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !reg.IsLoaded("collab") {
		t.Fatalf("expected model to eventually load after the failed attempt")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected exactly 2 loader invocations (1 failed + 1 retry), got %d", got)
	}
}
