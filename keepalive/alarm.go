package keepalive

import (
	"context"
	"sync"
	"time"
)

// Alarms is the scheduling facility of the hosting runtime. Scheduling a wake
// event keeps the host from suspending the background process.
type Alarms interface {
	Create(ctx context.Context, name string, when time.Time) error
	Clear(ctx context.Context, name string) error
}

// MemoryAlarms records scheduled alarms in memory.
type MemoryAlarms struct {
	mux       sync.Mutex
	scheduled map[string]time.Time
	created   int
	cleared   int
}

func (a *MemoryAlarms) Create(_ context.Context, name string, when time.Time) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	a.scheduled[name] = when
	a.created++
	return nil
}

func (a *MemoryAlarms) Clear(_ context.Context, name string) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	delete(a.scheduled, name)
	a.cleared++
	return nil
}

// Scheduled returns the wake time of the named alarm.
func (a *MemoryAlarms) Scheduled(name string) (time.Time, bool) {
	a.mux.Lock()
	defer a.mux.Unlock()
	when, ok := a.scheduled[name]
	return when, ok
}

// Counts returns how many times alarms were created and cleared.
func (a *MemoryAlarms) Counts() (created, cleared int) {
	a.mux.Lock()
	defer a.mux.Unlock()
	return a.created, a.cleared
}

// NewMemoryAlarms creates an empty MemoryAlarms.
func NewMemoryAlarms() *MemoryAlarms {
	return &MemoryAlarms{scheduled: map[string]time.Time{}}
}
