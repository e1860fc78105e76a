package orchestrator

import (
	"fmt"
	"log/slog"
)

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// LogProgress returns a progress callback that logs failures at Warn and
// everything else at Debug.
func LogProgress(logger *slog.Logger) func(ProgressEvent) {
	return func(ev ProgressEvent) {
		attrs := []any{"stage", ev.Stage.String(), "item", ev.Section, "status", string(ev.Status)}
		if ev.Status == ProgressFailed {
			logger.Warn("analysis step failed", append(attrs, "error", ev.Message)...)
			return
		}
		logger.Debug("analysis progress", attrs...)
	}
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Section)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Section)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.Section)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Section, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Section)
	}
}

// FormatStageHeader formats a stage header for display.
// Returns: "[{root}] {stage}"
func FormatStageHeader(root string, stage Stage) string {
	return fmt.Sprintf("[%s] %s", root, stage.String())
}
