package clock

import (
	"sync"
	"time"
)

// Scheduler runs deferred and periodic callbacks grouped by key.
type Scheduler struct {
	clock Clock

	mu    sync.Mutex
	tasks map[string]map[*Task]struct{}
}

// Task is a handle on a scheduled callback.
type Task struct {
	s       *Scheduler
	key     string
	timer   Timer
	stopped bool
}

// NewScheduler creates a Scheduler on c. A nil clock uses Real.
func NewScheduler(c Clock) *Scheduler {
	if c == nil {
		c = Real()
	}
	return &Scheduler{clock: c, tasks: make(map[string]map[*Task]struct{})}
}

// Clock returns the underlying clock.
func (s *Scheduler) Clock() Clock { return s.clock }

// After runs fn once after d unless the task or its key is cancelled first.
func (s *Scheduler) After(key string, d time.Duration, fn func()) *Task {
	t := &Task{s: s, key: key}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(t)
	t.timer = s.clock.AfterFunc(d, func() {
		if !s.finish(t) {
			return
		}
		fn()
	})
	return t
}

// Every runs fn every d until fn returns false or the task is cancelled.
// The first run happens after d.
func (s *Scheduler) Every(key string, d time.Duration, fn func() bool) *Task {
	t := &Task{s: s, key: key}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(t)
	s.arm(t, d, fn)
	return t
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(t *Task, d time.Duration, fn func() bool) {
	t.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		stopped := t.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		again := fn()
		s.mu.Lock()
		defer s.mu.Unlock()
		if !again || t.stopped {
			s.drop(t)
			return
		}
		s.arm(t, d, fn)
	})
}

// Cancel stops every task registered under key and returns how many were
// still pending.
func (s *Scheduler) Cancel(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.tasks[key]
	for t := range set {
		t.stopped = true
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	delete(s.tasks, key)
	return len(set)
}

// Pending returns the number of live tasks under key.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}

// Stop cancels the task. It reports whether the task was still live.
func (t *Task) Stop() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	s.drop(t)
	return true
}

func (s *Scheduler) add(t *Task) {
	set, ok := s.tasks[t.key]
	if !ok {
		set = make(map[*Task]struct{})
		s.tasks[t.key] = set
	}
	set[t] = struct{}{}
}

func (s *Scheduler) drop(t *Task) {
	t.stopped = true
	set := s.tasks[t.key]
	delete(set, t)
	if len(set) == 0 {
		delete(s.tasks, t.key)
	}
}

// finish marks a one-shot task as fired. It reports false if the task was
// cancelled meanwhile.
func (s *Scheduler) finish(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.stopped {
		return false
	}
	s.drop(t)
	return true
}
