package resolver

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func TestJitter(t *testing.T) {
	t.Run("Between Stays In Window", func(t *testing.T) {
		j := NewJitter(rand.New(rand.NewPCG(5, 5)), nil)
		for i := 0; i < 1000; i++ {
			d := j.Between(2*time.Second, 5*time.Second)
			if d < 2*time.Second || d > 5*time.Second {
				t.Fatalf("duration %v outside 2s-5s", d)
			}
		}
	})

	t.Run("Degenerate Window", func(t *testing.T) {
		j := NewJitter(nil, nil)
		if d := j.Between(time.Second, time.Second); d != time.Second {
			t.Errorf("expected 1s, got %v", d)
		}
		if d := j.Between(3*time.Second, time.Second); d != 3*time.Second {
			t.Errorf("inverted window should return lo, got %v", d)
		}
	})

	t.Run("Pause Uses Sleeper", func(t *testing.T) {
		var got time.Duration
		j := NewJitter(rand.New(rand.NewPCG(1, 1)), func(ctx context.Context, d time.Duration) error {
			got = d
			return nil
		})
		d, err := j.Pause(context.Background(), time.Second, 3*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d != got {
			t.Errorf("returned %v but slept %v", d, got)
		}
	})

	t.Run("Sleep Honors Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Sleep Zero", func(t *testing.T) {
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
