package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrerenderConfig is the `prerender:` option. It accepts a boolean or a
// mapping; a mapping switches pre-rendering on.
type PrerenderConfig struct {
	Enabled    bool
	Partial    bool
	NoExtraDir bool
	Parallel   Parallel

	outdated []string
}

type prerenderMapping struct {
	Partial    bool      `yaml:"partial"`
	NoExtraDir bool      `yaml:"no_extra_dir"`
	Parallel   *Parallel `yaml:"parallel"`
	Base       *string   `yaml:"base"`
	OutDir     *string   `yaml:"out_dir"`
}

func (p *PrerenderConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("prerender should be true, false, or a mapping: %w", err)
		}
		*p = PrerenderConfig{Enabled: enabled}
		return nil
	case yaml.MappingNode:
		var m prerenderMapping
		if err := node.Decode(&m); err != nil {
			return err
		}
		*p = PrerenderConfig{Enabled: true, Partial: m.Partial, NoExtraDir: m.NoExtraDir}
		if m.Parallel != nil {
			p.Parallel = *m.Parallel
		}
		if m.Base != nil {
			p.outdated = append(p.outdated, "base")
		}
		if m.OutDir != nil {
			p.outdated = append(p.outdated, "out_dir")
		}
		return nil
	default:
		return fmt.Errorf("line %d: prerender should be true, false, or a mapping", node.Line)
	}
}

func (p PrerenderConfig) MarshalYAML() (any, error) {
	return map[string]any{
		"partial":      p.Partial,
		"no_extra_dir": p.NoExtraDir,
		"parallel":     p.Parallel,
	}, nil
}

// Parallel is the concurrency cap. The zero value means one task per CPU.
type Parallel struct {
	n        int
	explicit bool
}

// ParallelN returns an explicit cap; 0 means serial.
func ParallelN(n int) Parallel { return Parallel{n: n, explicit: true} }

// ParallelAuto returns the CPU-count cap.
func ParallelAuto() Parallel { return Parallel{} }

// Limit resolves the cap to a positive task count.
func (p Parallel) Limit() int {
	if !p.explicit {
		return max(runtime.NumCPU(), 1)
	}
	return max(p.n, 1)
}

func (p Parallel) String() string {
	if !p.explicit {
		return "true"
	}
	return strconv.Itoa(p.n)
}

// ParseParallel parses `true`, `false`, or a non-negative integer.
func ParseParallel(raw string) (Parallel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "true":
		return ParallelAuto(), nil
	case "false":
		return ParallelN(0), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return Parallel{}, fmt.Errorf("parallel should be true, false, or a non-negative integer, got %q", raw)
	}
	return ParallelN(n), nil
}

func (p *Parallel) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parallel should be a boolean or an integer", node.Line)
	}
	parsed, err := ParseParallel(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = parsed
	return nil
}

func (p Parallel) MarshalYAML() (any, error) {
	if !p.explicit {
		return true, nil
	}
	return p.n, nil
}
