package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wyborczy/wyborczy/internal/log"
)

const (
	testQuota  = 10
	testWindow = 24 * time.Hour
)

// testLimiter returns a limiter on a controllable clock.
func testLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()
	now := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	l := New(testQuota, testWindow, log.NewNop(), WithClock(func() time.Time { return now }))
	return l, &now
}

func TestCheckAllowsUpToQuota(t *testing.T) {
	l, _ := testLimiter(t)

	for i := range testQuota {
		d := l.Check("fp")
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if d.Remaining != testQuota-i {
			t.Errorf("request %d: remaining = %d, want %d", i+1, d.Remaining, testQuota-i)
		}
		l.RecordUsage("fp")
	}

	d := l.Check("fp")
	if d.Allowed {
		t.Fatal("request over quota allowed")
	}
	if d.Message == "" {
		t.Error("limited decision has no message")
	}
}

func TestFingerprintsAreIndependent(t *testing.T) {
	l, _ := testLimiter(t)

	for range testQuota {
		l.RecordUsage("heavy")
	}

	if d := l.Check("heavy"); d.Allowed {
		t.Error("exhausted fingerprint allowed")
	}
	if d := l.Check("fresh"); !d.Allowed || d.Remaining != testQuota {
		t.Errorf("fresh fingerprint: %+v", d)
	}
}

func TestWindowSlides(t *testing.T) {
	l, now := testLimiter(t)

	for range testQuota {
		l.RecordUsage("fp")
	}
	if d := l.Check("fp"); d.Allowed {
		t.Fatal("allowed right after exhausting quota")
	}

	// One nanosecond short of expiry: still limited.
	*now = now.Add(testWindow - time.Nanosecond)
	if d := l.Check("fp"); d.Allowed {
		t.Error("allowed before the window elapsed")
	}

	// All ten requests fall out of the window together.
	*now = now.Add(time.Nanosecond)
	d := l.Check("fp")
	if !d.Allowed {
		t.Fatal("denied after the window elapsed")
	}
	if d.Remaining != testQuota {
		t.Errorf("remaining = %d, want %d", d.Remaining, testQuota)
	}
}

func TestRetryInTracksOldestRequest(t *testing.T) {
	l, now := testLimiter(t)

	l.RecordUsage("fp")
	*now = now.Add(2 * time.Hour)
	for range testQuota - 1 {
		l.RecordUsage("fp")
	}

	// Oldest request was 2h ago, so it leaves the window in 22h.
	d := l.Check("fp")
	if d.Allowed {
		t.Fatal("expected limited")
	}
	if d.RetryIn != 22*time.Hour {
		t.Errorf("RetryIn = %v, want 22h", d.RetryIn)
	}
}

func TestFailedRequestsStillCount(t *testing.T) {
	// RecordUsage carries no success flag: the pipeline charges quota on
	// teardown whether or not generation succeeded.
	l, _ := testLimiter(t)

	for range testQuota {
		l.RecordUsage("fp")
	}
	if d := l.Check("fp"); d.Allowed {
		t.Error("usage recorded for failed requests did not count")
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New(testQuota, testWindow, log.NewNop())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := fmt.Sprintf("fp-%d", i%5)
			l.Check(fp)
			l.RecordUsage(fp)
			l.Check(fp)
		}()
	}
	wg.Wait()

	// 10 goroutines per fingerprint, exactly at quota.
	for i := range 5 {
		fp := fmt.Sprintf("fp-%d", i)
		if d := l.Check(fp); d.Allowed {
			t.Errorf("%s: allowed after 10 recorded uses", fp)
		}
	}
}

func TestFingerprintsDoNotShareLocks(t *testing.T) {
	l, _ := testLimiter(t)
	l.RecordUsage("held")

	// Hold one fingerprint's entry lock; operations on another
	// fingerprint must still complete.
	r := l.record("held", l.now())
	r.mu.Lock()
	defer r.mu.Unlock()

	done := make(chan Decision, 1)
	go func() {
		l.RecordUsage("free")
		done <- l.Check("free")
	}()

	select {
	case d := <-done:
		if !d.Allowed || d.Remaining != testQuota-1 {
			t.Errorf("free fingerprint: %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("different fingerprint blocked behind a held entry")
	}
}

func TestSweepDropsExpiredFingerprints(t *testing.T) {
	l, now := testLimiter(t)
	l.RecordUsage("visitor")

	*now = now.Add(testWindow + sweepInterval)
	l.Check("other")

	l.mu.Lock()
	_, ok := l.records["visitor"]
	l.mu.Unlock()
	if ok {
		t.Error("expired fingerprint still held in the map")
	}

	// A swept fingerprint starts fresh.
	if d := l.Check("visitor"); !d.Allowed || d.Remaining != testQuota {
		t.Errorf("swept fingerprint: %+v", d)
	}
}

func TestLimitMessage(t *testing.T) {
	cases := []struct {
		retryIn time.Duration
		want    string
	}{
		{
			23*time.Hour + 59*time.Minute + 59*time.Second,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 23 godziny 59 minut 59 sekund.",
		},
		{
			time.Hour + 3*time.Minute + 47*time.Second,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 1 godzinę 3 minuty 47 sekund.",
		},
		{
			// Zero hours are omitted.
			21*time.Minute + time.Second,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 21 minutę 1 sekundę.",
		},
		{
			// Fractional seconds round up.
			2*time.Second + 500*time.Millisecond,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 3 sekundy.",
		},
		{
			// Whole hours leave no minute or second component.
			5 * time.Hour,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 5 godzin.",
		},
		{
			24 * time.Hour,
			"Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za 24 godziny.",
		},
	}

	for _, tc := range cases {
		if got := limitMessage(tc.retryIn); got != tc.want {
			t.Errorf("limitMessage(%v)\n got  %q\n want %q", tc.retryIn, got, tc.want)
		}
	}
}

func TestTimeLabel(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{0, ""},
		{1, "1 godzinę"},
		{2, "2 godziny"},
		{4, "4 godziny"},
		{5, "5 godzin"},
		{10, "10 godzin"},
		// The ending follows the last digit alone.
		{21, "21 godzinę"},
		{23, "23 godziny"},
	}
	for _, tc := range cases {
		if got := timeLabel(tc.count, "godzin"); got != tc.want {
			t.Errorf("timeLabel(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}
