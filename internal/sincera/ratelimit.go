package sincera

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter enforces the API's dual rate window: a trailing 60-second
// request window and a per-calendar-day request budget. It is owned by the
// collector and shared with the client; the pipeline issues one request at
// a time, so Acquire blocks the whole run when a window is full.
type RateLimiter struct {
	perMinute int
	perDay    int

	mu       sync.Mutex
	window   []time.Time
	dayCount int
	day      time.Time // midnight marking the current calendar day

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a limiter allowing perMinute requests in any
// trailing 60-second window and perDay requests per local calendar day
func NewRateLimiter(perMinute, perDay int) *RateLimiter {
	rl := &RateLimiter{
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
		sleep:     time.Sleep,
	}
	rl.day = midnight(rl.now())
	return rl
}

// Acquire blocks until issuing one more request stays inside both windows,
// then records the request. Must be called before every outbound attempt,
// including the very first.
func (rl *RateLimiter) Acquire() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// Day rollover resets both windows
	if d := midnight(now); !d.Equal(rl.day) {
		rl.day = d
		rl.dayCount = 0
		rl.window = rl.window[:0]
	}

	// Daily budget exhausted: wait until the next local midnight
	if rl.dayCount >= rl.perDay {
		wait := rl.day.AddDate(0, 0, 1).Sub(now)
		if wait > 0 {
			logrus.Warnf("Daily limit reached (%d requests), sleeping %s until midnight",
				rl.perDay, wait.Round(time.Second))
			rl.sleep(wait)
		}
		now = rl.now()
		rl.day = midnight(now)
		rl.dayCount = 0
		rl.window = rl.window[:0]
	}

	rl.evict(now)

	// Minute window full: wait until the oldest entry ages out
	if len(rl.window) >= rl.perMinute {
		wait := time.Minute - now.Sub(rl.window[0])
		if wait > 0 {
			logrus.Debugf("Rate limit: waiting %s", wait.Round(time.Millisecond))
			rl.sleep(wait)
		}
		now = rl.now()
		rl.evict(now)
	}

	rl.window = append(rl.window, now)
	rl.dayCount++
}

// evict drops window entries that are at least 60 seconds old
func (rl *RateLimiter) evict(now time.Time) {
	i := 0
	for i < len(rl.window) && now.Sub(rl.window[i]) >= time.Minute {
		i++
	}
	if i > 0 {
		rl.window = append(rl.window[:0], rl.window[i:]...)
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
