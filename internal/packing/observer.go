package packing

import "time"

// StageEvent is emitted after every stage attempt.
type StageEvent struct {
	RunID    string
	Stage    Stage
	Duration time.Duration
	Err      error
}

// FallbackEvent is emitted each time a default replaces unusable model output.
type FallbackEvent struct {
	RunID  string
	Stage  Stage
	Reason FallbackReason
}

// RunEvent is emitted once per run that passed the configuration check.
type RunEvent struct {
	RunID     string
	Duration  time.Duration
	Fallbacks int
	Err       error
}

// Observer receives pipeline events. Implementations must be safe for concurrent runs.
type Observer interface {
	StageDone(StageEvent)
	Fallback(FallbackEvent)
	RunDone(RunEvent)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) StageDone(StageEvent)   {}
func (NopObserver) Fallback(FallbackEvent) {}
func (NopObserver) RunDone(RunEvent)       {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) StageDone(e StageEvent) {
	for _, o := range obs {
		o.StageDone(e)
	}
}

func (obs Observers) Fallback(e FallbackEvent) {
	for _, o := range obs {
		o.Fallback(e)
	}
}

func (obs Observers) RunDone(e RunEvent) {
	for _, o := range obs {
		o.RunDone(e)
	}
}
