package domain

// Stage is the current phase of the recording/transcription cycle.
// Exactly one Stage is active at any instant; it is the only value
// shared between the signal-delivery goroutine and the pipeline loop.
type Stage int32

const (
	StageIdle Stage = iota
	StageRecording
	StageTranscribing
	StageTyping
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRecording:
		return "recording"
	case StageTranscribing:
		return "transcribing"
	case StageTyping:
		return "typing"
	default:
		return "unknown"
	}
}

// TransitionOutcome is the result of one toggle request.
type TransitionOutcome int

const (
	// ToggleIgnored means the toggle arrived mid-pipeline and was dropped.
	ToggleIgnored TransitionOutcome = iota
	ToggleStartedRecording
	ToggleStoppedRecording
)

func (o TransitionOutcome) String() string {
	switch o {
	case ToggleStartedRecording:
		return "started_recording"
	case ToggleStoppedRecording:
		return "stopped_recording"
	default:
		return "ignored"
	}
}

// UtteranceKind classifies a transcribed utterance.
type UtteranceKind string

const (
	UtterancePlain      UtteranceKind = "plain"
	UtteranceInstructed UtteranceKind = "instructed"
	UtteranceQuery      UtteranceKind = "query"
)

// ParsedUtterance is the immutable classification of one utterance.
// Content holds the text before the instruction keyword (the whole
// utterance for plain), Instruction the text after it, and Query the
// text following the ask keyword.
type ParsedUtterance struct {
	Kind        UtteranceKind
	Content     string
	Instruction string
	Query       string
}

// ErrorCode identifies cycle-recoverable failure classes.
type ErrorCode string

const (
	ErrorCodeCaptureStart     ErrorCode = "capture_start"
	ErrorCodeCaptureRetrieval ErrorCode = "capture_retrieval"
	ErrorCodeTranscription    ErrorCode = "transcription"
	ErrorCodeRefinement       ErrorCode = "refinement"
	ErrorCodeOutputDispatch   ErrorCode = "output_dispatch"
	ErrorCodeConfiguration    ErrorCode = "configuration"
)
