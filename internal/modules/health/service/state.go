package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// State: то, что отдаём в /healthz. Пишет диспетчер, читают HTTP-хендлеры.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected     atomic.Bool
	lastMessageUnix atomic.Int64 // unix seconds
	warmupLeft      atomic.Int64

	mu           sync.RWMutex
	reservedSide string
	reservedSize string
	lastDecision string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) SetWarmupLeft(n int) { s.warmupLeft.Store(int64(n)) }
func (s *State) WarmupLeft() int     { return int(s.warmupLeft.Load()) }

func (s *State) TouchMessage(t time.Time) { s.lastMessageUnix.Store(t.Unix()) }
func (s *State) LastMessage() time.Time {
	u := s.lastMessageUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) SetReserved(side, size string) {
	s.mu.Lock()
	s.reservedSide, s.reservedSize = side, size
	s.mu.Unlock()
}

func (s *State) Reserved() (side, size string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reservedSide, s.reservedSize
}

func (s *State) SetLastDecision(v string) {
	s.mu.Lock()
	s.lastDecision = v
	s.mu.Unlock()
}

func (s *State) LastDecision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDecision
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
