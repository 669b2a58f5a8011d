package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_DropsOldest(t *testing.T) {
	q := NewQueue(2)

	for i := uint64(1); i <= 4; i++ {
		dropped := q.Push(Frame{Seq: i})
		if want := i > 2; dropped != want {
			t.Errorf("Push(%d) dropped = %v, want %v", i, dropped, want)
		}
	}

	if q.Len() != 2 || q.Dropped() != 2 {
		t.Fatalf("Len = %d Dropped = %d", q.Len(), q.Dropped())
	}

	ctx := context.Background()
	for _, want := range []uint64{3, 4} {
		f, err := q.Pop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.Seq != want {
			t.Errorf("Pop() seq = %d, want %d", f.Seq, want)
		}
	}
}

func TestQueue_PopWaits(t *testing.T) {
	q := NewQueue(1)

	var wg sync.WaitGroup
	wg.Add(1)
	var got Frame
	var err error
	go func() {
		defer wg.Done()
		got, err = q.Pop(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(Frame{Seq: 7})
	wg.Wait()

	if err != nil || got.Seq != 7 {
		t.Errorf("Pop() = %d, %v", got.Seq, err)
	}
}

func TestQueue_ContextAndClose(t *testing.T) {
	q := NewQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Pop() error = %v, want deadline", err)
	}

	q.Push(Frame{Seq: 1})
	q.Close()

	if f, err := q.Pop(context.Background()); err != nil || f.Seq != 1 {
		t.Errorf("queued frame should survive Close: %v %v", f.Seq, err)
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Pop() after drain error = %v, want ErrQueueClosed", err)
	}
	if !q.Push(Frame{Seq: 2}) {
		t.Error("Push to closed queue should report a drop")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue(3)
	q.Push(Frame{})
	q.Push(Frame{})
	q.Drain()
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d", q.Len())
	}
}
