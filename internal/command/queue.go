// Package command implements the mailbox between the ground link and the
// show control loop.
package command

import (
	"strings"
	"sync"
)

// Flag is a pending command bit. Several flags may be pending at once; only
// their presence matters.
type Flag uint8

const (
	Start Flag = 1 << iota
	Pause
	Stop
	Restart
)

func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, c := range []struct {
		flag Flag
		name string
	}{{Start, "start"}, {Pause, "pause"}, {Stop, "stop"}, {Restart, "restart"}} {
		if f&c.flag != 0 {
			names = append(names, c.name)
		}
	}
	return strings.Join(names, "|")
}

// Handlers receives the single command chosen on each drain.
type Handlers interface {
	HandleStart()
	HandlePause()
	HandleStop()
	HandleRestart()
}

// Queue accumulates command flags between control ticks.
type Queue struct {
	mu      sync.Mutex
	pending Flag
}

func NewQueue() *Queue {
	return &Queue{}
}

// Post marks a command as pending. It only blocks for the critical section
// of a concurrent Post or Drain.
func (q *Queue) Post(f Flag) {
	q.mu.Lock()
	q.pending |= f
	q.mu.Unlock()
}

// Drain takes the pending set and leaves the queue empty. It never blocks:
// if the guard is held elsewhere it reports ok=false and the commands stay
// queued for the next tick.
func (q *Queue) Drain() (pending Flag, ok bool) {
	if !q.mu.TryLock() {
		return 0, false
	}
	pending = q.pending
	q.pending = 0
	q.mu.Unlock()
	return pending, true
}

// Resolve picks the command that wins from a pending set.
// Stop beats Pause, Pause beats Start, Start beats Restart.
func Resolve(pending Flag) Flag {
	switch {
	case pending&Stop != 0:
		return Stop
	case pending&Pause != 0:
		return Pause
	case pending&Start != 0:
		return Start
	case pending&Restart != 0:
		return Restart
	default:
		return 0
	}
}

// DrainAndResolve drains the queue and invokes at most one handler. It
// returns the command that was dispatched, or zero.
func (q *Queue) DrainAndResolve(h Handlers) Flag {
	pending, ok := q.Drain()
	if !ok {
		return 0
	}

	cmd := Resolve(pending)
	switch cmd {
	case Stop:
		h.HandleStop()
	case Pause:
		h.HandlePause()
	case Start:
		h.HandleStart()
	case Restart:
		h.HandleRestart()
	}
	return cmd
}
