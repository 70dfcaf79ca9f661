package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/phusis/engine/core"
)

// DistributionStrategy decides how a change in the wanted number of
// secondary command buffers is spread over the worker slots.
type DistributionStrategy int

const (
	// Optimal moves the whole change onto one slot: the smallest when
	// growing, the largest when shrinking.
	DistributionOptimal DistributionStrategy = iota
	// Uniform spreads the new total evenly over every slot.
	DistributionUniform
)

func (s DistributionStrategy) String() string {
	switch s {
	case DistributionOptimal:
		return "optimal"
	case DistributionUniform:
		return "uniform"
	}
	return fmt.Sprintf("DistributionStrategy(%d)", int(s))
}

func (s DistributionStrategy) MarshalText() ([]byte, error) {
	switch s {
	case DistributionOptimal, DistributionUniform:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("%w: %d", core.ErrUnknownStrategy, int(s))
}

func (s *DistributionStrategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "optimal", "":
		*s = DistributionOptimal
	case "uniform":
		*s = DistributionUniform
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownStrategy, string(text))
	}
	return nil
}
