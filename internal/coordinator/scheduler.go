package coordinator

import (
	"sync"
	"time"
)

// scheduler holds at most one pending advance. Each scheduled timer gets a
// new slot id; a timer may only run if its slot is still current when it
// claims it. All methods except wait require the coordinator lock.
type scheduler struct {
	clock Clock

	slot     uint64
	timer    Timer
	pending  bool
	deadline time.Time

	wg sync.WaitGroup
}

func newScheduler(clock Clock) *scheduler {
	return &scheduler{clock: clock}
}

// schedule replaces any pending timer with one that calls fire after d
func (s *scheduler) schedule(d time.Duration, fire func(slot uint64)) uint64 {
	s.cancel()

	if d < 0 {
		d = 0
	}

	s.slot++
	slot := s.slot
	s.pending = true
	s.deadline = s.clock.Now().Add(d)

	s.wg.Add(1)
	s.timer = s.clock.AfterFunc(d, func() {
		defer s.wg.Done()
		fire(slot)
	})

	return slot
}

// cancel stops the pending timer. A timer that already fired and is waiting
// for the lock will fail to claim its slot.
func (s *scheduler) cancel() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
	s.pending = false
	s.deadline = time.Time{}
	s.slot++
}

// claim marks slot as running. It fails for stale or cancelled slots.
func (s *scheduler) claim(slot uint64) bool {
	if !s.pending || slot != s.slot {
		return false
	}
	s.pending = false
	s.timer = nil
	s.deadline = time.Time{}
	return true
}

// next returns the deadline of the pending advance
func (s *scheduler) next() (time.Time, bool) {
	return s.deadline, s.pending
}

// wait blocks until every fired timer callback has returned.
// Must be called without the coordinator lock.
func (s *scheduler) wait() {
	s.wg.Wait()
}
