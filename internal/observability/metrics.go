package observability

import (
	"strconv"
	"sync"
	"time"
)

type routeStats struct {
	Count   int64
	Total   time.Duration
	Slowest time.Duration
}

// Metrics keeps in-process request and error counters, keyed by
// path, method and status or error code.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]*routeStats
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]*routeStats),
		errors:   make(map[string]int64),
	}
}

// RecordRequest counts a completed request and accumulates its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &routeStats{}
		m.requests[key] = stats
	}
	stats.Count++
	stats.Total += duration
	if duration > stats.Slowest {
		stats.Slowest = duration
	}
}

// RecordError counts a request that ended in an application error.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[path+"|"+method+"|"+code]++
}

// RouteSnapshot is a point-in-time view of one route's counters.
type RouteSnapshot struct {
	Count     int64 `json:"count"`
	AvgMicros int64 `json:"avg_micros"`
	MaxMicros int64 `json:"max_micros"`
}

// Snapshot returns copies of the request and error counters.
func (m *Metrics) Snapshot() (map[string]RouteSnapshot, map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make(map[string]RouteSnapshot, len(m.requests))
	for key, stats := range m.requests {
		requests[key] = RouteSnapshot{
			Count:     stats.Count,
			AvgMicros: stats.Total.Microseconds() / stats.Count,
			MaxMicros: stats.Slowest.Microseconds(),
		}
	}
	errors := make(map[string]int64, len(m.errors))
	for key, count := range m.errors {
		errors[key] = count
	}
	return requests, errors
}
