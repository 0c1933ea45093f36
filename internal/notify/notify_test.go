package notify

import (
	"sync"
	"testing"
)

func TestSubscribers(t *testing.T) {
	t.Parallel()

	t.Run("publishes in registration order", func(t *testing.T) {
		t.Parallel()

		var subs Subscribers[int]
		var got []string
		subs.Add(func(v int) { got = append(got, "a") })
		subs.Add(func(v int) { got = append(got, "b") })
		subs.Add(func(v int) { got = append(got, "c") })

		subs.Publish(1)
		if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("cancel removes subscriber", func(t *testing.T) {
		t.Parallel()

		var subs Subscribers[string]
		calls := 0
		cancel := subs.Add(func(string) { calls++ })
		subs.Publish("x")
		cancel()
		cancel()
		subs.Publish("y")

		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if subs.Len() != 0 {
			t.Errorf("Len() = %d", subs.Len())
		}
	})

	t.Run("subscriber may subscribe during publish", func(t *testing.T) {
		t.Parallel()

		var subs Subscribers[int]
		subs.Add(func(int) { subs.Add(func(int) {}) })
		subs.Publish(1)
		if subs.Len() != 2 {
			t.Errorf("Len() = %d, want 2", subs.Len())
		}
	})

	t.Run("concurrent use", func(t *testing.T) {
		t.Parallel()

		var subs Subscribers[int]
		var mu sync.Mutex
		total := 0
		subs.Add(func(v int) {
			mu.Lock()
			total += v
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				subs.Publish(1)
			}()
		}
		wg.Wait()

		if total != 50 {
			t.Errorf("total = %d, want 50", total)
		}
	})
}
