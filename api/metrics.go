package api

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// RequestTrace tracks timing for a single request.
type RequestTrace struct {
	RequestID     string        `json:"requestId"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	Status        int           `json:"status"`
	StartTime     time.Time     `json:"startTime"`
	TotalDuration time.Duration `json:"totalDuration"`
	Error         string        `json:"error,omitempty"`
}

// RouteMetrics aggregates metrics for a specific route.
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P50Time     time.Duration `json:"p50Time"`
	P95Time     time.Duration `json:"p95Time"`
	P99Time     time.Duration `json:"p99Time"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector collects and aggregates request metrics. Recording is
// designed to never block a request: traces are queued on a buffered channel
// and dropped silently when it is full. Missing a metric is acceptable;
// slowing down a request is not.
type MetricsCollector struct {
	mu            sync.RWMutex
	traces        []RequestTrace
	maxTraces     int
	routeMetrics  map[string]*RouteMetrics
	startedAt     time.Time
	totalRequests int64
	totalErrors   int64

	traceChan chan RequestTrace
	stopOnce  sync.Once
	stopChan  chan struct{}
}

var globalMetrics *MetricsCollector

// InitMetrics initializes the global metrics collector.
func InitMetrics(maxTraces int) {
	globalMetrics = &MetricsCollector{
		traces:       make([]RequestTrace, 0, maxTraces),
		maxTraces:    maxTraces,
		routeMetrics: make(map[string]*RouteMetrics),
		startedAt:    time.Now(),
		traceChan:    make(chan RequestTrace, 1000),
		stopChan:     make(chan struct{}),
	}
	go globalMetrics.processTraces()
}

// GetMetrics returns the global metrics collector.
func GetMetrics() *MetricsCollector {
	if globalMetrics == nil {
		InitMetrics(5000)
	}
	return globalMetrics
}

// RecordTrace queues a trace for background aggregation. Never blocks; a
// full queue drops the trace.
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traceChan <- trace:
	default:
	}
}

// Stop shuts the background aggregation goroutine down.
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

func (mc *MetricsCollector) processTraces() {
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.traces) >= mc.maxTraces {
		mc.traces = mc.traces[1:]
	}
	mc.traces = append(mc.traces, trace)

	routeKey := trace.Method + " " + normalizeRoutePath(trace.Path)
	metrics, exists := mc.routeMetrics[routeKey]
	if !exists {
		metrics = &RouteMetrics{
			Method:  trace.Method,
			Path:    normalizeRoutePath(trace.Path),
			MinTime: trace.TotalDuration,
		}
		mc.routeMetrics[routeKey] = metrics
	}

	metrics.Count++
	metrics.TotalTime += trace.TotalDuration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = trace.StartTime
	if trace.TotalDuration < metrics.MinTime {
		metrics.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > metrics.MaxTime {
		metrics.MaxTime = trace.TotalDuration
	}
	if trace.Status >= 400 {
		metrics.ErrorCount++
		mc.totalErrors++
	}
	mc.totalRequests++

	// Percentiles are recomputed periodically, they are too expensive to
	// maintain on every request.
	if metrics.Count%100 == 1 {
		mc.calculatePercentiles(routeKey)
	}
}

func (mc *MetricsCollector) calculatePercentiles(routeKey string) {
	metrics, ok := mc.routeMetrics[routeKey]
	if !ok {
		return
	}

	var samples []float64
	for _, trace := range mc.traces {
		if trace.Method+" "+normalizeRoutePath(trace.Path) == routeKey {
			samples = append(samples, float64(trace.TotalDuration))
		}
	}
	if len(samples) == 0 {
		return
	}

	if p50, err := stats.Percentile(samples, 50); err == nil {
		metrics.P50Time = time.Duration(p50)
	}
	if p95, err := stats.Percentile(samples, 95); err == nil {
		metrics.P95Time = time.Duration(p95)
	}
	if p99, err := stats.Percentile(samples, 99); err == nil {
		metrics.P99Time = time.Duration(p99)
	}
}

// GetRouteMetrics returns a copy of the aggregated metrics for all routes.
func (mc *MetricsCollector) GetRouteMetrics() map[string]*RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		metrics := *v
		result[k] = &metrics
	}
	return result
}

// GetSummary returns overall counters since the collector started.
func (mc *MetricsCollector) GetSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	elapsed := time.Since(mc.startedAt)
	var tps float64
	if elapsed.Seconds() > 0 {
		tps = float64(mc.totalRequests) / elapsed.Seconds()
	}
	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}

	return map[string]interface{}{
		"totalRequests": mc.totalRequests,
		"totalErrors":   mc.totalErrors,
		"errorRate":     errorRate,
		"tps":           tps,
		"since":         mc.startedAt,
		"routeCount":    len(mc.routeMetrics),
		"traceCount":    len(mc.traces),
	}
}

// GetSlowestRoutes returns routes ordered by average time, slowest first.
func (mc *MetricsCollector) GetSlowestRoutes(limit int) []*RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	routes := make([]*RouteMetrics, 0, len(mc.routeMetrics))
	for _, metrics := range mc.routeMetrics {
		copied := *metrics
		routes = append(routes, &copied)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].AvgTime > routes[j].AvgTime })
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}

var (
	uuidPattern      = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	shortCodePattern = regexp.MustCompile(`^(/api/v1/reports/)[A-Za-z0-9]{4}(/|$)`)
)

// normalizeRoutePath replaces dynamic segments with placeholders so
// /api/v1/reports/7f0c... and /api/v1/reports/AB12 aggregate under one key.
func normalizeRoutePath(path string) string {
	path = uuidPattern.ReplaceAllString(path, "/{id}$1")
	path = shortCodePattern.ReplaceAllString(path, "$1{code}$2")
	return path
}
