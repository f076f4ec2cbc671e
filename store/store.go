package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrCheckpointNotFound is returned when a run has no saved checkpoint.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

var (
	checkpointsBucket = []byte("checkpoints")
	eventsBucket      = []byte("events")
)

// EventRecord is one entry of a run's append-only audit log.
type EventRecord struct {
	Seq         uint64 `json:"seq"`
	RecordID    string `json:"record_id"`
	Group       string `json:"group,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Action      string `json:"action"`
	Previous    string `json:"previous"`
	New         string `json:"new"`
	Timestamp   string `json:"timestamp"`
}

// Checkpoint is the last saved state of a run.
type Checkpoint struct {
	RunID    string          `json:"run_id"`
	Protocol string          `json:"protocol"`
	Checksum uint64          `json:"checksum"`
	SavedAt  time.Time       `json:"saved_at"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Store defines persistence for run checkpoints and audit events.
type Store interface {
	AppendEvent(runID string, ev *EventRecord) error
	Events(runID string) ([]EventRecord, error)
	SaveCheckpoint(cp *Checkpoint) error
	GetCheckpoint(runID string) (*Checkpoint, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{checkpointsBucket, eventsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// AppendEvent assigns the next sequence number of the run to ev and stores it.
// Stored events are never rewritten.
func (s *BoltStore) AppendEvent(runID string, ev *EventRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(eventsBucket).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return fmt.Errorf("failed to create event log for %s: %w", runID, err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate event sequence: %w", err)
		}
		ev.Seq = seq

		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if err := b.Put(itob(seq), data); err != nil {
			return fmt.Errorf("failed to put event: %w", err)
		}
		return nil
	})
}

// Events returns the audit log of a run in append order.
func (s *BoltStore) Events(runID string) ([]EventRecord, error) {
	events := []EventRecord{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(eventsBucket).Bucket([]byte(runID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var ev EventRecord
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			events = append(events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SaveCheckpoint replaces the checkpoint of cp.RunID.
func (s *BoltStore) SaveCheckpoint(cp *Checkpoint) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(checkpointsBucket)

		data, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("failed to marshal checkpoint: %w", err)
		}

		if err := b.Put([]byte(cp.RunID), data); err != nil {
			return fmt.Errorf("failed to put checkpoint: %w", err)
		}
		return nil
	})
}

// GetCheckpoint retrieves the checkpoint of a run.
func (s *BoltStore) GetCheckpoint(runID string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(checkpointsBucket).Get([]byte(runID))
		if data == nil {
			return ErrCheckpointNotFound
		}
		if err := json.Unmarshal(data, &cp); err != nil {
			return fmt.Errorf("failed to unmarshal checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Runs lists the IDs of all checkpointed runs in key order.
func (s *BoltStore) Runs() ([]string, error) {
	var runs []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(checkpointsBucket).ForEach(func(k, _ []byte) error {
			runs = append(runs, string(k))
			return nil
		})
	})
	return runs, err
}

// Close closes the underlying store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
