package domain

// JobStatus tracks the remote lifecycle of a transcription job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Rank orders statuses along the forward-only transition chain.
// A snapshot ranked below an already-applied one must be discarded.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusComplete, JobStatusError:
		return 2
	default:
		return -1
	}
}

// TranscriptionJob is one remote job snapshot as observed by polling.
type TranscriptionJob struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	Status   JobStatus  `json:"status"`
	Result   *JobResult `json:"result,omitempty"`
}

// JobResult is the nullable result column of a job row. For a complete
// job the transcription fields are set; for a failed job only Error is.
type JobResult struct {
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Language string    `json:"language,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Segment is one time-bounded unit of transcribed text.
type Segment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ServerURL           string  `json:"serverUrl"`
	PollIntervalSeconds float64 `json:"pollIntervalSeconds"`
	Autoscroll          bool    `json:"autoscroll"`
	PrevEpsilonSeconds  float64 `json:"prevEpsilonSeconds"`
	FrameRate           int     `json:"frameRate"`
}

// ActionKind enumerates the fixed navigation vocabulary.
type ActionKind int

const (
	ActionPrev ActionKind = iota + 1
	ActionPlay
	ActionPause
	ActionNext
	ActionSeekTo
)

// String names an action kind for logs and events.
func (k ActionKind) String() string {
	switch k {
	case ActionPrev:
		return "prev"
	case ActionPlay:
		return "play"
	case ActionPause:
		return "pause"
	case ActionNext:
		return "next"
	case ActionSeekTo:
		return "seek-to"
	default:
		return "unknown"
	}
}

// NavigationAction is a tagged command consumed by the navigation
// controller. SeekTarget is meaningful only for ActionSeekTo.
type NavigationAction struct {
	Kind       ActionKind `json:"kind"`
	SeekTarget float64    `json:"seekTarget,omitempty"`
}
