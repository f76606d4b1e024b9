package session

import (
	"context"
	"testing"
	"time"
)

func TestCleanupExpired(t *testing.T) {
	store := &memStore{items: []*PlaySession{{ID: "a"}, {ID: "b"}}}
	ctx := context.Background()

	n, err := NewCore(store).CleanupExpired(ctx, time.Now())
	if err != nil || n != 0 || store.batches != 0 {
		t.Fatalf("retention off: n=%d err=%v batches=%d", n, err, store.batches)
	}

	n, err = NewCore(store, WithRetention(30)).CleanupExpired(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || store.batches != 1 {
		t.Fatalf("n=%d batches=%d", n, store.batches)
	}
}

func TestCleanupWorkerStops(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewCore(store, WithRetention(7)).StartCleanupWorker(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
}
