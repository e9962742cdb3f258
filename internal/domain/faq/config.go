package faq

import "time"

const (
	defaultBatchSize      = 50
	defaultSingleDelay    = 50 * time.Millisecond
	defaultBatchDelay     = 200 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultTopK           = 3
	defaultThreshold      = 1.8
	defaultParallelism    = 4
	defaultTrendingLimit  = 5
)

// ClientConfig holds runtime knobs for the embedding client.
type ClientConfig struct {
	Model          string
	BatchSize      int
	SingleDelay    time.Duration
	BatchDelay     time.Duration
	RequestTimeout time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.SingleDelay <= 0 {
		c.SingleDelay = defaultSingleDelay
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}

// Config holds runtime knobs for the retrieval service.
type Config struct {
	TopK              int
	DistanceThreshold float64
	Parallelism       int
	BatchSize         int
	TrendingLimit     int
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.DistanceThreshold <= 0 {
		c.DistanceThreshold = defaultThreshold
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.TrendingLimit <= 0 {
		c.TrendingLimit = defaultTrendingLimit
	}
	return c
}
