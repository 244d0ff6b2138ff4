package rmutex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockerSerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker(5 * time.Second)

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "chat:1", func() error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLock: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("expected at most 1 holder for one key, got %d", maxInFlight)
	}
}

func TestMemoryLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker(5 * time.Second)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "chat:1", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- locker.WithLock(context.Background(), "chat:2", func() error { return nil })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WithLock: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key must not block")
	}
	close(release)
}

func TestMemoryLockerAcquireTimeout(t *testing.T) {
	locker := NewMemoryLocker(50 * time.Millisecond)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "chat:1", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := locker.WithLock(context.Background(), "chat:1", func() error { return nil })
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestMemoryLockerPropagatesError(t *testing.T) {
	locker := NewMemoryLocker(time.Second)
	want := context.DeadlineExceeded
	err := locker.WithLock(context.Background(), "chat:1", func() error { return want })
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
