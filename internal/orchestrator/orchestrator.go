package orchestrator

import "context"

// Stage identifies a step of an analysis run.
type Stage int

const (
	StageWalk Stage = iota
	StageParse
	StageGraph
	StageRegistry
	StagePersist
)

func (s Stage) String() string {
	names := [...]string{
		"walk",
		"parse",
		"graph",
		"registry",
		"persist",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ProgressEvent is emitted while an analysis runs. Section names the file
// or step the event is about.
type ProgressEvent struct {
	Stage   Stage
	Section string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a file or step within a stage.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// FileResult is the outcome of parsing one file. Err is nil on success.
type FileResult struct {
	Path string
	Err  error
}

// Orchestrator runs analyses of a repository.
type Orchestrator interface {
	// Analyze walks, parses and links the repository.
	Analyze(ctx context.Context) (*Analysis, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
