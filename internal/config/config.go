// Package config holds the small set of process-wide knobs blinkdb needs:
// listen address, eviction capacity, membership filter width, and the
// persistence file path. Capacity and filter width are stored in atomics
// so they can be read, and capacity updated, without taking the keyspace
// lock.
package config

import "go.uber.org/atomic"

const (
	DefaultAddr         = ":9001"
	DefaultCapacity      = 1000
	DefaultFilterWidth   = 10000
	DefaultDataFile      = "blinkdb_data.txt"
	DefaultRateLimitRPS  = 10000
	DefaultRateBurst     = 1000
)

// Config is the resolved configuration for a blinkdb server process.
// Capacity is the one setting that can change after start, via
// SetCapacity.
type Config struct {
	Addr         string
	DataFile     string
	RateLimitRPS int
	RateBurst    int

	capacity     *atomic.Int64
	filterWidth  *atomic.Int64
}

// New builds a Config with the given values, defaulting anything left
// at its zero value.
func New(addr, dataFile string, capacity, filterWidth, rateRPS, rateBurst int) *Config {
	if addr == "" {
		addr = DefaultAddr
	}
	if dataFile == "" {
		dataFile = DefaultDataFile
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if filterWidth <= 0 {
		filterWidth = DefaultFilterWidth
	}
	if rateRPS <= 0 {
		rateRPS = DefaultRateLimitRPS
	}
	if rateBurst <= 0 {
		rateBurst = DefaultRateBurst
	}
	c := &Config{
		Addr:         addr,
		DataFile:     dataFile,
		RateLimitRPS: rateRPS,
		RateBurst:    rateBurst,
		capacity:     atomic.NewInt64(int64(capacity)),
		filterWidth:  atomic.NewInt64(int64(filterWidth)),
	}
	return c
}

// Capacity returns the current eviction threshold.
func (c *Config) Capacity() int { return int(c.capacity.Load()) }

// SetCapacity hot-updates the eviction threshold; the next operation
// that inserts a key will enforce it.
func (c *Config) SetCapacity(n int) { c.capacity.Store(int64(n)) }

// FilterWidth returns the membership filter's bit-array width.
func (c *Config) FilterWidth() int { return int(c.filterWidth.Load()) }
