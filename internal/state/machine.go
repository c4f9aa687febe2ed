package state

import (
	"sync/atomic"

	"sttd/internal/domain"
)

// Machine guards the cycle stage with a single atomic value. RequestToggle
// is invoked from the signal-delivery goroutine while the pipeline loop
// reads and advances the same stage, so every operation is a plain load or
// compare-and-swap; nothing here blocks, allocates, or performs I/O.
type Machine struct {
	stage atomic.Int32
}

// New returns a machine starting at StageIdle.
func New() *Machine {
	return &Machine{}
}

// Current returns a snapshot of the stage.
func (m *Machine) Current() domain.Stage {
	return domain.Stage(m.stage.Load())
}

// RequestToggle applies one external toggle. While idle it starts a
// recording, while recording it stops one, and mid-pipeline it is dropped:
// the in-flight cycle always proceeds and no backlog accumulates.
func (m *Machine) RequestToggle() domain.TransitionOutcome {
	for {
		current := domain.Stage(m.stage.Load())
		switch current {
		case domain.StageIdle:
			if m.stage.CompareAndSwap(int32(domain.StageIdle), int32(domain.StageRecording)) {
				return domain.ToggleStartedRecording
			}
		case domain.StageRecording:
			if m.stage.CompareAndSwap(int32(domain.StageRecording), int32(domain.StageTranscribing)) {
				return domain.ToggleStoppedRecording
			}
		default:
			return domain.ToggleIgnored
		}
		// CAS lost against a concurrent toggle; re-decide from the new stage.
	}
}

// Advance moves the stage from one value to another and reports whether it
// did. The pipeline uses it for the automatic edges and the compensating
// reverts; a false return means the stage was not the expected one and
// nothing changed.
func (m *Machine) Advance(from, to domain.Stage) bool {
	return m.stage.CompareAndSwap(int32(from), int32(to))
}
