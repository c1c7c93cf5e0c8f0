// Package config defines the Engine's tunable parameters, grounded on the
// teacher's cluster.ClusterConfig: a plain struct with validator tags, a
// Default constructor, and a Validate method, loadable from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// WorkerCountHint selects how EngineConfig.ResolveWorkers computes the
// number of SearchWorker goroutines.
type WorkerCountHint int

const (
	// Auto derives the worker count from runtime.NumCPU(). Per spec.md §9
	// Open Question (a), this is treated as a true free parameter with no
	// artificial cap — the source's single-thread cap is not carried
	// forward absent a documented data race.
	Auto WorkerCountHint = iota
	// Fixed uses EngineConfig.FixedWorkers verbatim.
	Fixed
	// SingleThreaded forces a cooperative (M=0) worker stepped by Tick.
	SingleThreaded
)

var (
	ErrEmptyMaxFrameTime   = errors.New("config: max frame time must be positive")
	ErrEmptyReturnBudget   = errors.New("config: return drain budget must be positive")
	ErrBadMinReturns       = errors.New("config: min returns per drain must be positive")
	ErrBadRateLimit        = errors.New("config: graph update min interval must be non-negative")
	ErrBadMinAreaSize      = errors.New("config: flood fill min area size must be positive")
	ErrBadMaxAreaIndex     = errors.New("config: flood fill max area index must be positive")
	ErrBadWaitDepth        = errors.New("config: wait-for-path warn depth must be positive")
	ErrFixedWorkersInvalid = errors.New("config: fixed worker count must be positive when hint is Fixed")
)

// EngineConfig holds every tunable the Engine and its subsystems read. All
// durations are re-read live where spec.md calls for it (the SearchWorker's
// per-iteration budget, notably), so EngineConfig is safe to mutate and
// re-Validate at runtime between Scan calls.
type EngineConfig struct {
	WorkerHint   WorkerCountHint `yaml:"worker_hint" validate:"-"`
	FixedWorkers int             `yaml:"fixed_workers" validate:"omitempty,min=1"`

	// MaxFrameTime bounds how long a SearchWorker runs calculateStep
	// before yielding back to the scheduler.
	MaxFrameTime time.Duration `yaml:"max_frame_time" validate:"required"`

	// ReturnDrainBudget bounds each tick's ReturnPipeline drain; Default
	// sets it to 1ms.
	ReturnDrainBudget time.Duration `yaml:"return_drain_budget" validate:"required"`
	// MinReturnsPerDrain is the floor below which a drain call must not
	// stop early even if ReturnDrainBudget has been exhausted.
	MinReturnsPerDrain int `yaml:"min_returns_per_drain" validate:"min=1"`

	// GraphUpdateMinInterval is the GraphUpdateScheduler's rate-limit
	// window; zero disables rate limiting.
	GraphUpdateMinInterval time.Duration `yaml:"graph_update_min_interval" validate:"gte=0"`

	// FloodFillMinAreaSize is the component-size floor below which an
	// area is a relabel candidate.
	FloodFillMinAreaSize int `yaml:"flood_fill_min_area_size" validate:"min=1"`
	// FloodFillMaxAreaIndex is the largest area id the bit-packed node
	// state can hold; it also doubles as the reserved "collapsed small
	// component" id.
	FloodFillMaxAreaIndex uint32 `yaml:"flood_fill_max_area_index" validate:"min=1"`

	// NearestMaxDistance rejects GetNearest results beyond this distance.
	NearestMaxDistance float64 `yaml:"nearest_max_distance" validate:"gte=0"`
	// NearestPrioritizeGraphs stops scanning further graphs once a graph
	// returns a node within NearestPrioritizeGraphsLimit.
	NearestPrioritizeGraphs      bool    `yaml:"nearest_prioritize_graphs"`
	NearestPrioritizeGraphsLimit float64 `yaml:"nearest_prioritize_graphs_limit" validate:"gte=0"`

	// WaitForPathWarnDepth is the re-entrancy depth at which WaitForPath
	// logs a warning rather than deadlocking (spec.md §4.9, §8).
	WaitForPathWarnDepth int `yaml:"wait_for_path_warn_depth" validate:"min=1"`
}

// Default returns a conservative, internally consistent configuration.
func Default() EngineConfig {
	return EngineConfig{
		WorkerHint:                   Auto,
		MaxFrameTime:                 2 * time.Millisecond,
		ReturnDrainBudget:            1 * time.Millisecond,
		MinReturnsPerDrain:           5,
		GraphUpdateMinInterval:       100 * time.Millisecond,
		FloodFillMinAreaSize:         10,
		FloodFillMaxAreaIndex:        65535,
		NearestMaxDistance:           0, // 0 means "no limit"
		NearestPrioritizeGraphs:      false,
		NearestPrioritizeGraphsLimit: 0,
		WaitForPathWarnDepth:         5,
	}
}

// Validate checks the configuration for internal consistency.
func (c *EngineConfig) Validate() error {
	if c.WorkerHint == Fixed && c.FixedWorkers <= 0 {
		return ErrFixedWorkersInvalid
	}
	if c.MaxFrameTime <= 0 {
		return ErrEmptyMaxFrameTime
	}
	if c.ReturnDrainBudget <= 0 {
		return ErrEmptyReturnBudget
	}
	if c.MinReturnsPerDrain <= 0 {
		return ErrBadMinReturns
	}
	if c.GraphUpdateMinInterval < 0 {
		return ErrBadRateLimit
	}
	if c.FloodFillMinAreaSize <= 0 {
		return ErrBadMinAreaSize
	}
	if c.FloodFillMaxAreaIndex == 0 {
		return ErrBadMaxAreaIndex
	}
	if c.WaitForPathWarnDepth <= 0 {
		return ErrBadWaitDepth
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ResolveWorkers computes the number of parallel SearchWorkers to start.
// A return of 0 means "single cooperative worker, no threads" per spec.md
// §4.9 / §5.
func (c *EngineConfig) ResolveWorkers() int {
	switch c.WorkerHint {
	case SingleThreaded:
		return 0
	case Fixed:
		return c.FixedWorkers
	default: // Auto
		n := runtime.NumCPU()
		if n < 1 {
			n = 1
		}
		return n
	}
}

// LoadEngineConfig reads and validates an EngineConfig from a YAML file,
// starting from Default() so unset fields keep sane values.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
