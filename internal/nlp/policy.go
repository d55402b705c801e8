package nlp

import "fmt"

// Default thresholds.
const (
	DefaultReadOnlyThreshold = 0.50
	DefaultMutateThreshold   = 0.65
	DefaultCreateThreshold   = 0.75
)

// Decision is the policy verdict on a classification.
type Decision int

const (
	Clarify Decision = iota
	Accept
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "clarify"
}

// Policy holds the per-class confidence thresholds.
type Policy struct {
	ReadOnly float64
	Mutate   float64
	Create   float64
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ReadOnly: DefaultReadOnlyThreshold,
		Mutate:   DefaultMutateThreshold,
		Create:   DefaultCreateThreshold,
	}
}

// Validate checks that thresholds are within [0,1] and ordered
// read-only <= mutate <= create.
func (p Policy) Validate() error {
	for _, v := range []float64{p.ReadOnly, p.Mutate, p.Create} {
		if v < 0 || v > 1 {
			return fmt.Errorf("nlp: threshold %v outside [0,1]", v)
		}
	}
	if p.ReadOnly > p.Mutate || p.Mutate > p.Create {
		return fmt.Errorf("nlp: thresholds must satisfy read_only <= mutate <= create")
	}
	return nil
}

// Threshold returns the minimum confidence for c. Unknown intents can never
// pass.
func (p Policy) Threshold(c Class) float64 {
	switch c {
	case ClassReadOnly:
		return p.ReadOnly
	case ClassMutate:
		return p.Mutate
	case ClassCreate:
		return p.Create
	}
	return 2
}

// Decide accepts r when its confidence reaches its class threshold.
func (p Policy) Decide(r Result) Decision {
	if r.Intent == IntentUnknown || r.Intent == "" {
		return Clarify
	}
	if r.Confidence >= p.Threshold(r.Intent.Class()) {
		return Accept
	}
	return Clarify
}
