package profiling

import (
	"errors"
	"fmt"

	"github.com/google/pprof/profile"
)

// Sentinel errors distinguishing "nothing happened" from "it broke".
// Empty-signal conditions are never reported as successful empty
// artifacts.
var (
	// ErrNoSamples indicates a CPU profile was captured but contains no
	// samples, typically because the sampling window was too short.
	ErrNoSamples = errors.New("profile contains no samples")

	// ErrNotActivated indicates heap sampling was never activated, so no
	// dump can be produced.
	ErrNotActivated = errors.New("heap profiling is not activated")

	// ErrNoAllocationData indicates a heap dump succeeded but recorded
	// zero allocation samples.
	ErrNoAllocationData = errors.New("heap profile contains no allocation data")
)

// sampleCount parses a serialized pprof artifact and returns the number
// of samples carrying at least one non-zero value. A parse failure means
// the artifact is not tool-consumable and is reported as a hard error.
func sampleCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	prof, err := profile.ParseData(data)
	if err != nil {
		return 0, fmt.Errorf("parse profile artifact: %w", err)
	}

	count := 0
	for _, s := range prof.Sample {
		for _, v := range s.Value {
			if v != 0 {
				count++
				break
			}
		}
	}
	return count, nil
}
