package stage

import (
	"context"
	"sort"
)

// Health summarizes the readiness of a pipeline dependency.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Checker reports the health of one dependency.
type Checker interface {
	HealthCheck(ctx context.Context) Health
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) Health

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) Health { return f(ctx) }

// Collect runs every checker and returns the records sorted by name along
// with whether all of them are ready.
func Collect(ctx context.Context, checkers ...Checker) ([]Health, bool) {
	out := make([]Health, 0, len(checkers))
	ready := true
	for _, c := range checkers {
		if c == nil {
			continue
		}
		h := c.HealthCheck(ctx)
		if !h.Ready {
			ready = false
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, ready
}
