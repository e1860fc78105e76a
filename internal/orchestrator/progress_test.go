package orchestrator

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{
		Stage:   StageParse,
		Section: "src/shop/models.py",
		Status:  ProgressWorking,
	}

	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	// The internal channel buffer is 64. Emitting 100 events must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(ProgressEvent{Stage: StageParse, Section: "file.go", Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.Emit(ProgressEvent{Stage: StagePersist, Section: "store", Status: ProgressComplete})
	pr.Close()

	var received []ProgressEvent
	for ev := range ch {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, ProgressComplete, received[0].Status)
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	log := LogProgress(logger)

	log(ProgressEvent{Stage: StageParse, Section: "a.py", Status: ProgressComplete})
	assert.Empty(t, buf.String(), "non-failures log at debug")

	log(ProgressEvent{Stage: StageParse, Section: "b.py", Status: ProgressFailed, Message: "bad syntax"})
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "item=b.py")
	assert.Contains(t, out, `error="bad syntax"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestFormatProgress_AllStatuses(t *testing.T) {
	tests := []struct {
		name   string
		event  ProgressEvent
		expect string
	}{
		{
			name:   "pending",
			event:  ProgressEvent{Section: "main.go", Status: ProgressPending},
			expect: "  ○ main.go (pending)",
		},
		{
			name:   "working",
			event:  ProgressEvent{Section: "main.go", Status: ProgressWorking},
			expect: "  ● main.go...",
		},
		{
			name:   "complete",
			event:  ProgressEvent{Section: "main.go", Status: ProgressComplete},
			expect: "  ✓ main.go complete",
		},
		{
			name:   "failed",
			event:  ProgressEvent{Section: "main.go", Status: ProgressFailed, Message: "timeout"},
			expect: "  ✗ main.go failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatProgress(tt.event))
		})
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "walk", StageWalk.String())
	assert.Equal(t, "persist", StagePersist.String())
	assert.Equal(t, "unknown", Stage(42).String())
	assert.Equal(t, "unknown", Stage(-1).String())
}

func TestFormatStageHeader(t *testing.T) {
	assert.Equal(t, "[shop] parse", FormatStageHeader("shop", StageParse))
}
