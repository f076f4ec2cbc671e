package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/franksops/welllit/store"
)

// CheckpointConfig defines the criteria for when to save a run's state
type CheckpointConfig struct {
	// EventInterval triggers a save after this many events
	EventInterval int
	// TimeInterval triggers a save after this much time has passed
	TimeInterval time.Duration
}

// DefaultCheckpointConfig checkpoints after every event
var DefaultCheckpointConfig = CheckpointConfig{
	EventInterval: 1,
	TimeInterval:  5 * time.Second,
}

// RunInfo identifies the run a Tracker persists.
type RunInfo struct {
	ID       string
	Protocol string
	Checksum uint64
}

// Tracker wraps a store to append engine events to the audit log and
// checkpoint the engine state.
type Tracker struct {
	store  store.Store
	config CheckpointConfig
	run    RunInfo
	logger *zap.Logger
	now    func() time.Time

	engine          *Engine
	sinceCheckpoint int
	lastCheckpointT time.Time
	err             error
}

// NewTracker creates a new Tracker for one run.
func NewTracker(st store.Store, config CheckpointConfig, run RunInfo, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:  st,
		config: config,
		run:    run,
		logger: logger.With(zap.String("run_id", run.ID)),
		now:    time.Now,
	}
}

// Attach subscribes the tracker to e and saves an initial checkpoint.
func (t *Tracker) Attach(e *Engine) error {
	t.engine = e
	e.Subscribe(t.handle)
	return t.Flush()
}

func (t *Tracker) handle(ev Event) {
	rec := &store.EventRecord{
		RecordID:  ev.RecordID,
		Action:    string(ev.Action),
		Previous:  string(ev.Previous),
		New:       string(ev.New),
		Timestamp: ev.TimestampUTC(),
	}
	if r, ok := t.engine.Record(ev.RecordID); ok {
		rec.Group = r.Group
		rec.Source = r.Source
		rec.Destination = r.Destination
	}

	if err := t.store.AppendEvent(t.run.ID, rec); err != nil {
		t.fail(fmt.Errorf("failed to append event: %w", err))
	}

	t.sinceCheckpoint++
	if t.sinceCheckpoint >= t.config.EventInterval ||
		(t.config.TimeInterval > 0 && t.now().Sub(t.lastCheckpointT) >= t.config.TimeInterval) {
		// Failures are kept in Err and logged
		_ = t.Flush()
	}
}

// Flush saves a checkpoint of the attached engine now.
func (t *Tracker) Flush() error {
	if t.engine == nil {
		return errors.New("tracker is not attached")
	}
	data, err := json.Marshal(t.engine.Snapshot())
	if err != nil {
		return t.fail(fmt.Errorf("failed to marshal snapshot: %w", err))
	}

	cp := &store.Checkpoint{
		RunID:    t.run.ID,
		Protocol: t.run.Protocol,
		Checksum: t.run.Checksum,
		SavedAt:  t.now().UTC(),
		Snapshot: data,
	}
	if err := t.store.SaveCheckpoint(cp); err != nil {
		return t.fail(fmt.Errorf("failed to save checkpoint: %w", err))
	}

	t.sinceCheckpoint = 0
	t.lastCheckpointT = t.now()
	return nil
}

func (t *Tracker) fail(err error) error {
	t.err = err
	t.logger.Warn("run persistence failed", zap.Error(err))
	return err
}

// Err returns the most recent persistence failure, if any.
func (t *Tracker) Err() error {
	return t.err
}

// Resume restores the engine saved for runID. It refuses a checkpoint taken
// from a different protocol input.
func Resume(st store.Store, runID string, checksum uint64, opts ...Option) (*Engine, *store.Checkpoint, error) {
	cp, err := st.GetCheckpoint(runID)
	if err != nil {
		return nil, nil, err
	}
	if cp.Checksum != checksum {
		return nil, cp, fmt.Errorf("%w: run %s was saved from a different protocol input", ErrInvalidSnapshot, runID)
	}

	var snap Snapshot
	if err := json.Unmarshal(cp.Snapshot, &snap); err != nil {
		return nil, cp, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	e, err := Restore(snap, opts...)
	if err != nil {
		return nil, cp, err
	}
	return e, cp, nil
}
