// Package metrics provides a lightweight counter/gauge collector with
// Prometheus-style text output, without pulling in client_golang.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates named counters and gauges.
type Collector struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	gauges    map[string]*Gauge
	startTime time.Time
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		gauges:    make(map[string]*Gauge),
		startTime: time.Now(),
	}
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

func (c *Counter) Inc()            { c.value.Add(1) }
func (c *Counter) Add(n int64)     { c.value.Add(n) }
func (c *Counter) Value() int64    { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

func (g *Gauge) Set(v int64)    { g.value.Store(v) }
func (g *Gauge) Inc()           { g.value.Add(1) }
func (g *Gauge) Dec()           { g.value.Add(-1) }
func (g *Gauge) Value() int64   { return g.value.Load() }

// Counter returns (creating if needed) the counter with the given name.
func (c *Collector) Counter(name, help string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok := c.counters[name]; ok {
		return ctr
	}
	ctr := &Counter{name: name, help: help}
	c.counters[name] = ctr
	return ctr
}

// Gauge returns (creating if needed) the gauge with the given name.
func (c *Collector) Gauge(name, help string) *Gauge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: name, help: help}
	c.gauges[name] = g
	return g
}

// WriteTo renders all metrics in Prometheus exposition format.
func (c *Collector) WriteTo(w io.Writer) (int64, error) {
	c.mu.Lock()
	names := make([]string, 0, len(c.counters)+len(c.gauges))
	for name := range c.counters {
		names = append(names, name)
	}
	for name := range c.gauges {
		names = append(names, name)
	}
	counters := make(map[string]*Counter, len(c.counters))
	gauges := make(map[string]*Gauge, len(c.gauges))
	for k, v := range c.counters {
		counters[k] = v
	}
	for k, v := range c.gauges {
		gauges[k] = v
	}
	c.mu.Unlock()

	sort.Strings(names)
	var written int64
	for _, name := range names {
		if ctr, ok := counters[name]; ok {
			n, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, ctr.help, name, name, ctr.Value())
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
		if g, ok := gauges[name]; ok {
			n, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, g.help, name, name, g.Value())
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
