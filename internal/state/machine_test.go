package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sttd/internal/domain"
)

func TestToggleCycle(t *testing.T) {
	t.Parallel()

	m := New()
	require.Equal(t, domain.StageIdle, m.Current())

	require.Equal(t, domain.ToggleStartedRecording, m.RequestToggle())
	require.Equal(t, domain.StageRecording, m.Current())

	require.Equal(t, domain.ToggleStoppedRecording, m.RequestToggle())
	require.Equal(t, domain.StageTranscribing, m.Current())

	require.True(t, m.Advance(domain.StageTranscribing, domain.StageTyping))
	require.True(t, m.Advance(domain.StageTyping, domain.StageIdle))
	require.Equal(t, domain.StageIdle, m.Current())
}

func TestToggleIgnoredMidPipeline(t *testing.T) {
	t.Parallel()

	m := New()
	m.RequestToggle()
	m.RequestToggle()

	// Stage is transcribing; toggles must be dropped without a state change.
	require.Equal(t, domain.ToggleIgnored, m.RequestToggle())
	require.Equal(t, domain.StageTranscribing, m.Current())

	require.True(t, m.Advance(domain.StageTranscribing, domain.StageTyping))
	require.Equal(t, domain.ToggleIgnored, m.RequestToggle())
	require.Equal(t, domain.StageTyping, m.Current())
}

func TestAdvanceRequiresExpectedStage(t *testing.T) {
	t.Parallel()

	m := New()
	require.False(t, m.Advance(domain.StageTranscribing, domain.StageTyping))
	require.Equal(t, domain.StageIdle, m.Current())

	m.RequestToggle()
	require.False(t, m.Advance(domain.StageIdle, domain.StageRecording))
	require.Equal(t, domain.StageRecording, m.Current())
}

func TestCompensatingRevert(t *testing.T) {
	t.Parallel()

	m := New()
	m.RequestToggle()
	require.True(t, m.Advance(domain.StageRecording, domain.StageIdle))
	require.Equal(t, domain.StageIdle, m.Current())
}

// Concurrent toggles never tear the stage and together produce a sequence
// of outcomes whose visited stages are a prefix of repeated cycles.
func TestConcurrentTogglesStayWithinCycle(t *testing.T) {
	t.Parallel()

	m := New()

	const workers = 8
	const togglesPerWorker = 200

	var wg sync.WaitGroup
	outcomes := make(chan domain.TransitionOutcome, workers*togglesPerWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < togglesPerWorker; j++ {
				outcomes <- m.RequestToggle()
				stage := m.Current()
				if stage < domain.StageIdle || stage > domain.StageTyping {
					t.Errorf("torn stage value: %d", stage)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	started, stopped := 0, 0
	for outcome := range outcomes {
		switch outcome {
		case domain.ToggleStartedRecording:
			started++
		case domain.ToggleStoppedRecording:
			stopped++
		}
	}

	// Every stop pairs with exactly one earlier start, and at most one
	// start can still be unmatched (the machine parked in recording).
	require.Equal(t, 1, started)
	require.Equal(t, 1, stopped)
	require.Equal(t, domain.StageTranscribing, m.Current())
}
