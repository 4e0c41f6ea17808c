package politeness

import (
	"sync"
	"testing"
	"time"
)

// TestAwaitTurnSameDomain tests the politeness invariant: returns for the
// same domain are separated by at least the configured delay regardless of
// which worker calls.
func TestAwaitTurnSameDomain(t *testing.T) {
	t.Parallel()

	const delay = 40 * time.Millisecond
	c := NewCoordinator(delay)

	const callers = 4
	var mu sync.Mutex
	var returns []time.Time

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AwaitTurn("http://a.edu/page")
			mu.Lock()
			returns = append(returns, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(returns) != callers {
		t.Fatalf("returns = %d, want %d", len(returns), callers)
	}

	// Sort by time and check gaps. A small scheduling tolerance keeps the
	// test stable on loaded machines.
	for i := 0; i < len(returns); i++ {
		for j := i + 1; j < len(returns); j++ {
			if returns[j].Before(returns[i]) {
				returns[i], returns[j] = returns[j], returns[i]
			}
		}
	}
	const tolerance = 5 * time.Millisecond
	for i := 1; i < len(returns); i++ {
		if gap := returns[i].Sub(returns[i-1]); gap < delay-tolerance {
			t.Errorf("gap %d = %v, want >= %v", i, gap, delay)
		}
	}
}

// TestAwaitTurnIndependentDomains tests that a wait on one domain does not
// block another.
func TestAwaitTurnIndependentDomains(t *testing.T) {
	t.Parallel()

	const delay = 200 * time.Millisecond
	c := NewCoordinator(delay)

	// Prime domain A so a second call to it would have to wait.
	c.AwaitTurn("http://a.edu/")

	start := time.Now()
	c.AwaitTurn("http://b.edu/")
	if elapsed := time.Since(start); elapsed >= delay {
		t.Errorf("first fetch of an unrelated domain waited %v", elapsed)
	}
}

// TestAwaitTurnZeroDelay tests that delay zero is valid and never blocks.
func TestAwaitTurnZeroDelay(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		c.AwaitTurn("http://a.edu/")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero delay took %v", elapsed)
	}
}

// TestAwaitTurnUnparseableURL tests that a URL without a domain is a no-op.
func TestAwaitTurnUnparseableURL(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(time.Second)

	done := make(chan struct{})
	go func() {
		c.AwaitTurn(":::not-a-url")
		c.AwaitTurn(":::not-a-url")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("AwaitTurn blocked on a URL with no domain")
	}
}

// TestDomains tests the domain counter.
func TestDomains(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(0)
	c.AwaitTurn("http://a.edu/1")
	c.AwaitTurn("http://a.edu/2")
	c.AwaitTurn("http://b.edu/")

	if got := c.Domains(); got != 2 {
		t.Errorf("Domains() = %d, want 2", got)
	}
}

// TestWithDomainRate tests that the optional token bucket engages after
// the burst is exhausted.
func TestWithDomainRate(t *testing.T) {
	t.Parallel()

	// 2 requests per 100ms window, no fixed delay.
	c := NewCoordinator(0, WithDomainRate(2, 100*time.Millisecond))

	start := time.Now()
	c.AwaitTurn("http://a.edu/")
	c.AwaitTurn("http://a.edu/")
	burst := time.Since(start)
	if burst > 50*time.Millisecond {
		t.Errorf("burst of 2 took %v, expected to pass immediately", burst)
	}

	c.AwaitTurn("http://a.edu/")
	if total := time.Since(start); total < 40*time.Millisecond {
		t.Errorf("third request passed after %v, expected rate limiting", total)
	}
}
