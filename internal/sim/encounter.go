package sim

import "fmt"

// CloseEncounter is the error returned by Integrate when two bodies come
// closer than the configured minimum distance. It is non-fatal: the caller
// is expected to react (typically by merging the closest pair) and resume
// the integration.
type CloseEncounter struct {
	Time     float64
	First    string
	Second   string
	Distance float64
}

func (e *CloseEncounter) Error() string {
	return fmt.Sprintf("close encounter between %s and %s at t=%.6g (d=%.4g)",
		e.First, e.Second, e.Time, e.Distance)
}
