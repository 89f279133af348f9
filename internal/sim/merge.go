package sim

import (
	"fmt"

	"github.com/kepler-sim/orbitlab/internal/body"
)

// MergeClosestPair finds the two closest bodies by squared Euclidean
// distance and replaces them with a single composite that conserves their
// total mass and momentum exactly. Every unordered pair is examined once;
// ties break to the first-enumerated pair because the comparison is a
// strict less-than. The composite inherits the identifier of the pair
// member that comes first in iteration order and is appended to the
// collection, so one merge shrinks the body count by exactly one.
func (s *Simulation) MergeClosestPair() (body.Body, error) {
	if len(s.bodies) < 2 {
		return body.Body{}, fmt.Errorf("%w: merge needs a pair", ErrTooFewBodies)
	}

	// A duplicate identifier would make removal ambiguous; fail fast.
	seen := make(map[string]struct{}, len(s.bodies))
	for _, b := range s.bodies {
		if _, ok := seen[b.ID]; ok {
			return body.Body{}, fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
	}

	bi, bj := 0, 1
	best := body.DistanceSquared(s.bodies[0], s.bodies[1])
	for i := 0; i < len(s.bodies); i++ {
		for j := i + 1; j < len(s.bodies); j++ {
			if d2 := body.DistanceSquared(s.bodies[i], s.bodies[j]); d2 < best {
				bi, bj, best = i, j, d2
			}
		}
	}

	first, second := s.bodies[bi], s.bodies[bj]
	composite := body.Merge(first, second)

	if err := s.Remove(first.ID); err != nil {
		return body.Body{}, err
	}
	if err := s.Remove(second.ID); err != nil {
		return body.Body{}, err
	}
	s.bodies = append(s.bodies, composite)

	s.logger.Log("level", "info", "event", "merge",
		"t", s.t, "survivor", composite.ID, "removed", second.ID,
		"mass", composite.Mass, "bodies", len(s.bodies))

	return composite, nil
}
