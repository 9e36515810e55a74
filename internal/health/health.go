// Package health tracks recent provider call outcomes and derives a coarse status.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status is the derived health classification of a provider.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
	StatusUnknown  Status = "unknown"
)

// Latency thresholds on the average successful call.
const (
	healthyLatency  = 2000 * time.Millisecond
	degradedLatency = 5000 * time.Millisecond

	healthyRate  = 0.95
	degradedRate = 0.5
)

// Policy holds the tunable limits of the tracker.
type Policy struct {
	// Capacity bounds each provider's ring buffer
	Capacity int
	// Window limits which calls count toward the status
	Window time.Duration
	// StaleSuccess and StaleMinCalls force down a provider whose last success is older
	// than StaleSuccess once at least StaleMinCalls calls are in the window
	StaleSuccess  time.Duration
	StaleMinCalls int
}

// DefaultPolicy returns the standard limits: 100 calls, one hour, 15 minutes / 6 calls.
func DefaultPolicy() Policy {
	return Policy{
		Capacity:      100,
		Window:        time.Hour,
		StaleSuccess:  15 * time.Minute,
		StaleMinCalls: 6,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Capacity <= 0 {
		p.Capacity = d.Capacity
	}
	if p.Window <= 0 {
		p.Window = d.Window
	}
	if p.StaleSuccess <= 0 {
		p.StaleSuccess = d.StaleSuccess
	}
	if p.StaleMinCalls <= 0 {
		p.StaleMinCalls = d.StaleMinCalls
	}
	return p
}

// Call is one recorded provider call.
type Call struct {
	Model   string        `json:"model"`
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
	At      time.Time     `json:"at"`
}

// ring is a fixed-capacity buffer that overwrites its oldest entry.
type ring struct {
	calls []Call
	next  int
	full  bool
}

func (r *ring) add(c Call) {
	r.calls[r.next] = c
	r.next = (r.next + 1) % len(r.calls)
	if r.next == 0 {
		r.full = true
	}
}

// each visits the calls oldest first.
func (r *ring) each(fn func(Call)) {
	if r.full {
		for _, c := range r.calls[r.next:] {
			fn(c)
		}
	}
	for _, c := range r.calls[:r.next] {
		fn(c)
	}
}

// Report is the derived health of one provider.
type Report struct {
	Provider     string     `json:"provider"`
	Status       Status     `json:"status"`
	SuccessRate  float64    `json:"success_rate"`
	AvgLatencyMs int64      `json:"avg_latency_ms"`
	TotalCalls   int        `json:"total_calls"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Tracker records calls per provider. It is safe for concurrent use.
type Tracker struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	providers map[string]*ring
}

// NewTracker creates a tracker. Zero policy fields take their defaults.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{
		policy:    policy.withDefaults(),
		now:       time.Now,
		providers: make(map[string]*ring),
	}
}

// RecordCall appends one completed call to the provider's buffer.
func (t *Tracker) RecordCall(provider, model string, success bool, latency time.Duration, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.providers[provider]
	if !ok {
		r = &ring{calls: make([]Call, t.policy.Capacity)}
		t.providers[provider] = r
	}
	r.add(Call{
		Model:   model,
		Success: success,
		Latency: latency,
		Error:   errMsg,
		At:      t.now(),
	})
}

// Status returns the provider's derived status.
func (t *Tracker) Status(provider string) Status {
	return t.Report(provider).Status
}

// Report derives the provider's health over the window.
func (t *Tracker) Report(provider string) Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report(provider)
}

// Snapshot returns a report for every provider seen, sorted by provider name.
func (t *Tracker) Snapshot() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Report, 0, len(names))
	for _, name := range names {
		out = append(out, t.report(name))
	}
	return out
}

func (t *Tracker) report(provider string) Report {
	rep := Report{Provider: provider, Status: StatusUnknown}
	r, ok := t.providers[provider]
	if !ok {
		return rep
	}

	now := t.now()
	cutoff := now.Add(-t.policy.Window)

	var (
		successes   int
		latencySum  time.Duration
		lastSuccess time.Time
	)
	r.each(func(c Call) {
		if c.Success && c.At.After(lastSuccess) {
			lastSuccess = c.At
		}
		if c.At.Before(cutoff) {
			return
		}
		rep.TotalCalls++
		if c.Success {
			successes++
			latencySum += c.Latency
		} else if c.Error != "" {
			rep.LastError = c.Error
		}
	})

	if !lastSuccess.IsZero() {
		rep.LastSuccess = &lastSuccess
	}
	if rep.TotalCalls == 0 {
		return rep
	}

	rep.SuccessRate = float64(successes) / float64(rep.TotalCalls)
	var avg time.Duration
	if successes > 0 {
		avg = latencySum / time.Duration(successes)
		rep.AvgLatencyMs = avg.Milliseconds()
	}

	switch {
	case rep.SuccessRate >= healthyRate && avg < healthyLatency:
		rep.Status = StatusHealthy
	case rep.SuccessRate >= degradedRate && avg < degradedLatency:
		rep.Status = StatusDegraded
	default:
		rep.Status = StatusDown
	}

	if rep.Status != StatusDown && rep.TotalCalls >= t.policy.StaleMinCalls && now.Sub(lastSuccess) > t.policy.StaleSuccess {
		rep.Status = StatusDown
	}
	return rep
}
