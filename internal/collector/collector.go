package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"netmap3d/viz-go/internal/inventory"
	"netmap3d/viz-go/internal/metrics"
)

var ErrMissingHost = errors.New("collect request has no host")

// CollectRequest carries the credentials handed to the collection
// layer. The core only acknowledges the trigger; it never talks to the
// device itself.
type CollectRequest struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RunAck is the immediate acknowledgement for a fire-and-forget run.
type RunAck struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

const (
	runStateRunning   = "running"
	runStateCompleted = "completed"
	runStateFailed    = "failed"
)

// RunStatus describes the most recent collection run.
type RunStatus struct {
	RunID       string     `json:"run_id,omitempty"`
	State       string     `json:"state,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DeviceCount int        `json:"device_count"`
	Error       string     `json:"error,omitempty"`
}

type Options struct {
	// RepollDelay is the fixed wait between the trigger acknowledgement
	// and the device re-poll.
	RepollDelay time.Duration
	PollTimeout time.Duration
}

func (o *Options) defaults() {
	if o.RepollDelay <= 0 {
		o.RepollDelay = 10 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 15 * time.Second
	}
}

// Collector acknowledges collection triggers and re-polls the device
// source after a fixed delay. A failed re-poll degrades to stale data;
// there is no cancellation for an in-flight run.
type Collector struct {
	log     zerolog.Logger
	src     inventory.Source
	metrics *metrics.Metrics
	opts    Options

	// onDevices receives the re-polled record set; the host wires it to
	// the graph builder and renderer.
	onDevices func([]inventory.DeviceRecord)

	mu   sync.Mutex
	last RunStatus
}

func New(log zerolog.Logger, src inventory.Source, m *metrics.Metrics, opts Options, onDevices func([]inventory.DeviceRecord)) *Collector {
	opts.defaults()
	return &Collector{
		log:       log,
		src:       src,
		metrics:   m,
		opts:      opts,
		onDevices: onDevices,
	}
}

// Trigger validates the request and starts a run. It returns as soon
// as the run is acknowledged; the re-poll happens in the background.
func (c *Collector) Trigger(_ context.Context, req CollectRequest) (RunAck, error) {
	if strings.TrimSpace(req.Host) == "" {
		return RunAck{}, ErrMissingHost
	}

	runID := uuid.NewString()
	started := time.Now().UTC()

	c.mu.Lock()
	c.last = RunStatus{RunID: runID, State: runStateRunning, StartedAt: &started}
	c.mu.Unlock()

	c.metrics.IncCollectionRun()
	c.log.Info().
		Str("run_id", runID).
		Str("host", req.Host).
		Str("username", req.Username).
		Msg("collection run accepted")

	go c.repoll(runID, started)

	return RunAck{RunID: runID, Status: "accepted", StartedAt: started}, nil
}

// Status returns the most recent run's state.
func (c *Collector) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Collector) repoll(runID string, started time.Time) {
	time.Sleep(c.opts.RepollDelay)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.PollTimeout)
	defer cancel()

	devices, total, err := c.src.ListDevices(ctx)
	finished := time.Now().UTC()
	c.metrics.ObserveCollectionRunDuration(finished.Sub(started))

	c.mu.Lock()
	if c.last.RunID == runID {
		c.last.FinishedAt = &finished
		if err != nil {
			c.last.State = runStateFailed
			c.last.Error = err.Error()
		} else {
			c.last.State = runStateCompleted
			c.last.DeviceCount = total
		}
	}
	c.mu.Unlock()

	if err != nil {
		// Stale data is acceptable; the dashboard keeps its last view.
		c.log.Warn().Err(err).Str("run_id", runID).Msg("device re-poll failed, keeping stale records")
		return
	}

	c.log.Info().Str("run_id", runID).Int("devices", total).Msg("device re-poll complete")
	if c.onDevices != nil {
		c.onDevices(devices)
	}
}
