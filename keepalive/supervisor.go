// Package keepalive keeps the background process awake while authorization
// requests are waiting for the user.
package keepalive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/viant/authbridge"
	"github.com/viant/authbridge/lock"
)

// Supervisor runs a repeating wake timer if and only if at least one auth id is active.
type Supervisor struct {
	mux      *lock.Mutex
	alarms   Alarms
	name     string
	interval time.Duration
	logger   *slog.Logger
	active   map[string]struct{}
	timer    *timer
}

type timer struct {
	stop chan struct{}
	done chan struct{}
}

// Start marks authID as needing keep-alive and starts the timer on the first id.
func (s *Supervisor) Start(ctx context.Context, authID string) error {
	release, err := s.mux.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to start keep-alive for %s: %w", authID, err)
	}
	defer release()
	s.active[authID] = struct{}{}
	if s.timer == nil {
		s.timer = &timer{stop: make(chan struct{}), done: make(chan struct{})}
		go s.run(s.timer)
		s.logger.Debug("keep-alive started", "auth_id", authID, "interval", s.interval)
	}
	return nil
}

// Stop removes authID and cancels the timer once no id is left.
// Stopping an id that is not active is a no-op.
func (s *Supervisor) Stop(ctx context.Context, authID string) error {
	release, err := s.mux.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop keep-alive for %s: %w", authID, err)
	}
	defer release()
	if _, ok := s.active[authID]; !ok {
		return nil
	}
	delete(s.active, authID)
	if len(s.active) > 0 || s.timer == nil {
		return nil
	}
	t := s.timer
	s.timer = nil
	close(t.stop)
	<-t.done
	s.logger.Debug("keep-alive stopped", "auth_id", authID)
	if err = s.alarms.Clear(ctx, s.name); err != nil {
		return fmt.Errorf("failed to clear %s alarm: %w", s.name, err)
	}
	return nil
}

// Active returns the sorted ids currently holding keep-alive.
func (s *Supervisor) Active(ctx context.Context) ([]string, error) {
	release, err := s.mux.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	ret := make([]string, 0, len(s.active))
	for id := range s.active {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret, nil
}

// Running returns true while the wake timer runs.
func (s *Supervisor) Running(ctx context.Context) (bool, error) {
	release, err := s.mux.Lock(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return s.timer != nil, nil
}

func (s *Supervisor) run(t *timer) {
	defer close(t.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			if err := s.alarms.Create(context.Background(), s.name, now.Add(time.Millisecond)); err != nil {
				s.logger.Warn("failed to schedule keep-alive alarm", "alarm", s.name, "error", err)
			}
		}
	}
}

// New creates a Supervisor scheduling wake events through alarms.
func New(alarms Alarms, options ...Option) *Supervisor {
	ret := &Supervisor{
		mux:      lock.New(),
		alarms:   alarms,
		name:     authbridge.KeepAliveAlarm,
		interval: authbridge.DefaultKeepAliveInterval,
		logger:   slog.Default(),
		active:   map[string]struct{}{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
