package qureg

import "runtime"

/*
Config holds the tunables shared by a Register and the in-process Cluster.
Every rank of a distributed register must use an identical Config, since
the tolerance decides whether Normalize fails and that decision has to be
the same everywhere.
*/
type Config struct {
	// Workers bounds the goroutines used for one shard loop.
	Workers int
	// ParallelThreshold is the shard length below which loops stay serial.
	ParallelThreshold int
	// Tolerance is the norm at or below which a state counts as degenerate.
	Tolerance float64
	// LockstepCheck tags every exchange and reduction with a sequence
	// number and reports ErrLockstepViolation when ranks diverge.
	LockstepCheck bool
}

func NewConfig() *Config {
	return &Config{
		Workers:           runtime.GOMAXPROCS(0),
		ParallelThreshold: 1 << 14,
		Tolerance:         1e-12,
		LockstepCheck:     false,
	}
}

func (c *Config) workers() int {
	if c == nil || c.Workers < 1 {
		return 1
	}
	return c.Workers
}

func (c *Config) threshold() int {
	if c == nil || c.ParallelThreshold < 1 {
		return 1 << 14
	}
	return c.ParallelThreshold
}

func (c *Config) tolerance() float64 {
	if c == nil || c.Tolerance <= 0 {
		return 1e-12
	}
	return c.Tolerance
}
