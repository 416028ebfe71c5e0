package pipeline

import (
	"log/slog"
	"time"

	"github.com/quafel/quafel/internal/dag"
	"github.com/quafel/quafel/internal/runstore"
)

// Notifier receives task state changes for external consumers, e.g. the
// dashboard progress feed.
type Notifier interface {
	TaskChanged(task runstore.Task)
}

// Observer records node lifecycle events into the run store and forwards
// them to an optional notifier. It implements dag.Observer.
type Observer struct {
	store    *runstore.Store
	notifier Notifier
	logger   *slog.Logger
}

// NewObserver creates an observer. notifier may be nil.
func NewObserver(store *runstore.Store, notifier Notifier, logger *slog.Logger) *Observer {
	return &Observer{store: store, notifier: notifier, logger: logger}
}

func (o *Observer) NodeStarted(id string) {
	o.record(id, dag.Running.String(), 0, nil)
}

func (o *Observer) NodeFinished(id string, state dag.State, elapsed time.Duration, err error) {
	o.record(id, state.String(), elapsed, err)
}

func (o *Observer) record(id, state string, elapsed time.Duration, taskErr error) {
	if err := o.store.SetState(id, state, elapsed, taskErr); err != nil {
		o.logger.Warn("Failed to record task state.", "task", id, "error", err)
		return
	}
	if o.notifier == nil {
		return
	}
	task, err := o.store.Get(id)
	if err != nil {
		o.logger.Warn("Failed to load task for notification.", "task", id, "error", err)
		return
	}
	o.notifier.TaskChanged(task)
}
