package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPool(t *testing.T) {
	for _, workers := range []int{1, 4} {
		pool := Start(workers)
		var sum atomic.Int64
		for i := 1; i <= 100; i++ {
			pool.Do(func() { sum.Add(int64(i)) })
		}
		pool.Wait(true)

		if got := sum.Load(); got != 5050 {
			t.Errorf("workers=%d: sum = %d, want 5050", workers, got)
		}
	}
}

func TestMapOrder(t *testing.T) {
	got, err := Map(context.Background(), 3, 50, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != i*i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestMapError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	_, err := Map(context.Background(), 1, 20, func(ctx context.Context, i int) (struct{}, error) {
		calls.Add(1)
		if i == 2 {
			return struct{}{}, boom
		}
		return struct{}{}, ctx.Err()
	})
	if !errors.Is(err, boom) {
		t.Errorf("Map error = %v, want boom", err)
	}
	if n := calls.Load(); n >= 20 {
		t.Errorf("fn called %d times after failure", n)
	}
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, 2, 10, func(context.Context, int) (int, error) {
		t.Error("fn called on a cancelled context")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Map error = %v, want context.Canceled", err)
	}
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 0, 0, func(context.Context, int) (int, error) {
		return 1, nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("Map(n=0) = %v, %v", got, err)
	}
}
