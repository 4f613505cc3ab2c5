package entities

import "time"

// AgentSpec configures one agent role. Loaded at startup, never mutated.
type AgentSpec struct {
	Role        string
	Name        string
	Description string
	Instruction string // system prompt
	Template    string // text/template rendered into the user prompt
	Params      GenerationParams
}

// PipelineStep is one entry of the fixed, linear step order.
type PipelineStep struct {
	Name          string
	Title         string
	Agent         string
	Description   string
	DependsOn     []string
	Required      bool
	EstimatedTime int // seconds, informational
}

// ErrorHandling decides what the orchestrator does after a failed step.
type ErrorHandling string

const (
	StopOnError ErrorHandling = "stop_on_error"
	Continue    ErrorHandling = "continue"
)

// AgentTask is the input handed to an agent for one step.
type AgentTask struct {
	StepName    string
	Title       string
	Description string
	Query       string
	Input       string // previous step output, or the query for the first step
	Context     RetrievedContext
	Outputs     map[string]string // outputs of earlier steps by step name
	Model       string
}

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
)

// StepResult is appended to the pipeline trace as each step finishes.
type StepResult struct {
	StepName      string     `json:"step_name"`
	Title         string     `json:"title,omitempty"`
	Agent         string     `json:"agent"`
	StepNumber    int        `json:"step_number"`
	Output        string     `json:"output_text"`
	ElapsedMs     int64      `json:"elapsed_ms"`
	Status        StepStatus `json:"status"`
	Attempts      int        `json:"attempts"`
	Error         string     `json:"error,omitempty"`
	EstimatedTime int        `json:"estimated_time,omitempty"`
	Description   string     `json:"description,omitempty"`
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Status == StepOK }

// PipelineStatus is the overall outcome of a team run.
type PipelineStatus string

const (
	PipelineComplete PipelineStatus = "complete"
	PipelinePartial  PipelineStatus = "partial"
	PipelineFailed   PipelineStatus = "failed"
)

// PipelineResult is produced by one orchestrator run.
type PipelineResult struct {
	FinalText  string
	Sources    []string
	Steps      []StepResult
	Status     PipelineStatus
	FailedStep int // 1-based, 0 when nothing failed
	Error      string
}

// StepState is a progress state of the pipeline state machine.
type StepState string

const (
	StatePending   StepState = "pending"
	StateRunning   StepState = "running"
	StateCompleted StepState = "completed"
	StateFailed    StepState = "failed"
	StateDone      StepState = "done"
)

// ProgressEvent is emitted after every state transition.
type ProgressEvent struct {
	StepIndex int       `json:"step_index"`
	StepName  string    `json:"step_name"`
	State     StepState `json:"state"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}
