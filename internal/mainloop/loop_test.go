package mainloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPumpRunsInOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 5; i++ {
		l.Post(func() { got = append(got, i) })
	}
	if n := l.Pump(); n != 5 {
		t.Fatalf("Pump() = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v", got)
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d after pump", l.Len())
	}
}

func TestPumpRunsNestedPosts(t *testing.T) {
	l := New()
	var got []string
	l.Post(func() {
		got = append(got, "outer")
		l.Post(func() { got = append(got, "inner") })
	})
	if n := l.Pump(); n != 2 {
		t.Errorf("Pump() = %d, want 2", n)
	}
	if len(got) != 2 || got[1] != "inner" {
		t.Errorf("got %v", got)
	}
}

func TestRunExecutesCrossGoroutinePosts(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const count = 100
	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		go l.Post(wg.Done)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if err := l.RunUntil(ctx, done); err != nil {
		t.Fatalf("RunUntil() = %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
