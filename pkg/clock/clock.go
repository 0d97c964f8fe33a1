package clock

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock is the time source used by settlement scheduling.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Timer
	// Every runs f every d until the returned Timer is stopped.
	Every(d time.Duration, f func()) Timer
}

// System runs one-shot callbacks on runtime timers and repeating callbacks
// as cron entries.
type System struct {
	cron *cron.Cron
}

func NewSystem() *System {
	c := cron.New()
	c.Start()
	return &System{cron: c}
}

func (s *System) Now() time.Time {
	return time.Now()
}

func (s *System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (s *System) Every(d time.Duration, f func()) Timer {
	id := s.cron.Schedule(cron.Every(d), cron.FuncJob(f))
	return &cronEntry{cron: s.cron, id: id}
}

// Stop halts the cron runner; running jobs are not waited for.
func (s *System) Stop() {
	s.cron.Stop()
}

type cronEntry struct {
	cron *cron.Cron
	id   cron.EntryID
}

func (e *cronEntry) Stop() bool {
	if e.cron.Entry(e.id).ID == 0 {
		return false
	}
	e.cron.Remove(e.id)
	return true
}
