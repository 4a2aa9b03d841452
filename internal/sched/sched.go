package sched

import (
	"sort"
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. It reports whether the callback was
// cancelled before it fired.
type CancelFunc func() bool

// Scheduler arms one-shot callbacks. Callbacks must re-validate the state
// they were scheduled against before mutating anything: a cancel can race a
// fire, and a stale fire has to be a no-op.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

type realScheduler struct{}

// Real returns a Scheduler backed by time.AfterFunc.
func Real() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	return timer.Stop
}

// Manual is a Scheduler driven by explicit Advance calls, for tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	nextSeq int
	entries []*manualEntry
}

type manualEntry struct {
	at        time.Time
	seq       int
	fn        func()
	cancelled bool
	fired     bool
}

func NewManual() *Manual {
	return &Manual{now: time.Now()}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &manualEntry{at: m.now.Add(d), seq: m.nextSeq, fn: fn}
	m.nextSeq++
	m.entries = append(m.entries, entry)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if entry.fired || entry.cancelled {
			return false
		}
		entry.cancelled = true
		return true
	}
}

// Advance moves virtual time forward and fires due callbacks in schedule
// order. Callbacks run without the scheduler lock held, so they may arm new
// timers; newly armed timers that fall due within the same advance fire too.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	deadline := m.now
	m.mu.Unlock()
	for {
		entry := m.popDue(deadline)
		if entry == nil {
			return
		}
		entry.fn()
	}
}

// Pending reports the number of armed, unfired callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, entry := range m.entries {
		if !entry.fired && !entry.cancelled {
			count++
		}
	}
	return count
}

func (m *Manual) popDue(deadline time.Time) *manualEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := make([]*manualEntry, 0)
	for _, entry := range m.entries {
		if entry.fired || entry.cancelled || entry.at.After(deadline) {
			continue
		}
		due = append(due, entry)
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	due[0].fired = true
	return due[0]
}
