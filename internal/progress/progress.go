// Package progress streams task state changes to an external dashboard
// over socket.io. The feed is best effort: a dashboard that is down never
// fails a benchmark run.
package progress

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/quafel/quafel/internal/runstore"
)

// Publisher emits `task` events for every state change and one final
// `run` event. A Publisher with an empty URL is disabled and discards
// all events.
type Publisher struct {
	logger    *slog.Logger
	io        *socket.Socket
	manager   *socket.Manager
	connected atomic.Bool
	warnOnce  sync.Once
}

// NewPublisher connects to the dashboard at dashboardURL. An empty URL
// returns a disabled publisher. Connection errors are logged as warnings,
// never returned: the run proceeds without a progress feed.
func NewPublisher(dashboardURL string, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{logger: logger}
	if dashboardURL == "" {
		return p, nil
	}

	parsed, err := url.Parse(dashboardURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	p.manager = socket.NewManager(baseURL, opts)
	p.io = p.manager.Socket("/", opts)

	p.io.On(types.EventName("connect"), func(...any) {
		p.connected.Store(true)
		logger.Info("Connected to progress dashboard.", "url", dashboardURL, "sid", p.io.Id())
	})
	p.io.On(types.EventName("connect_error"), func(errs ...any) {
		p.warnOnce.Do(func() {
			logger.Warn("Progress dashboard unreachable, continuing without feed.",
				"url", dashboardURL, "error", fmt.Sprint(errs...))
		})
	})

	p.io.Connect()
	return p, nil
}

// Enabled reports whether a dashboard URL was configured.
func (p *Publisher) Enabled() bool {
	return p.io != nil
}

// TaskChanged implements the pipeline notifier: one `task` event per
// state transition.
func (p *Publisher) TaskChanged(task runstore.Task) {
	if p.io == nil {
		return
	}
	p.io.Emit("task", map[string]any{
		"id":          task.ID,
		"framework":   task.Framework,
		"state":       task.State,
		"duration_ms": float64(task.Duration.Nanoseconds()) / 1e6,
	})
}

// RunFinished emits the aggregate outcome of the run.
func (p *Publisher) RunFinished(experiment, state string, elapsed time.Duration, runErr error) {
	if p.io == nil {
		return
	}
	event := map[string]any{
		"experiment":  experiment,
		"state":       state,
		"duration_ms": float64(elapsed.Nanoseconds()) / 1e6,
	}
	if runErr != nil {
		event["error"] = runErr.Error()
	}
	p.io.Emit("run", event)
}

// Close disconnects from the dashboard.
func (p *Publisher) Close() {
	if p.io == nil {
		return
	}
	p.io.Disconnect()
	p.connected.Store(false)
}
