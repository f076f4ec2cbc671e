package engine

import (
	"fmt"
	"sort"
	"time"
)

// Engine walks an operator through a fixed sequence of transfers, one record
// at a time. It owns every Record; the sequence and groups only hold IDs.
//
// An Engine is not safe for concurrent use. It models a single operator
// driving a single cursor.
type Engine struct {
	records  map[string]*Record
	sequence []string
	groups   []Group
	groupIdx map[string]int

	current      int
	currentID    string
	currentGroup int

	canUndo   bool
	undoIndex int
	override  bool

	policy   AdvancePolicy
	now      func() time.Time
	handlers []EventHandler
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithPolicy replaces the default StepPolicy.
func WithPolicy(p AdvancePolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEventHandler subscribes h to committed events.
func WithEventHandler(h EventHandler) Option {
	return func(e *Engine) {
		if h != nil {
			e.handlers = append(e.handlers, h)
		}
	}
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		records:  make(map[string]*Record),
		groupIdx: make(map[string]int),
		policy:   StepPolicy{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New builds the sequence with b and starts the first record. If the builder
// fails no engine is created.
func New(b SequenceBuilder, opts ...Option) (*Engine, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no sequence builder", ErrInvalidDefinition)
	}
	def, err := b.Build()
	if err != nil {
		return nil, err
	}

	e := newEngine(opts)
	if err := e.load(def); err != nil {
		return nil, err
	}
	e.setCursor(0)
	e.start()
	return e, nil
}

func (e *Engine) load(def Definition) error {
	if len(def.Groups) == 0 {
		return fmt.Errorf("%w: no groups", ErrInvalidDefinition)
	}
	for _, gd := range def.Groups {
		if gd.Name == "" {
			return fmt.Errorf("%w: unnamed group", ErrInvalidDefinition)
		}
		if _, dup := e.groupIdx[gd.Name]; dup {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalidDefinition, gd.Name)
		}
		if len(gd.Records) == 0 {
			return fmt.Errorf("%w: group %q is empty", ErrInvalidDefinition, gd.Name)
		}

		g := Group{Name: gd.Name, Start: len(e.sequence)}
		for _, rec := range gd.Records {
			if rec.ID == "" {
				return fmt.Errorf("%w: record without id in group %q", ErrInvalidDefinition, gd.Name)
			}
			if _, dup := e.records[rec.ID]; dup {
				return fmt.Errorf("%w: duplicate record id %q", ErrInvalidDefinition, rec.ID)
			}
			r := rec.clone()
			r.Group = gd.Name
			r.clear()
			e.records[r.ID] = &r
			e.sequence = append(e.sequence, r.ID)
		}
		g.End = len(e.sequence)
		e.groupIdx[g.Name] = len(e.groups)
		e.groups = append(e.groups, g)
	}
	return nil
}

// setCursor moves the cursor and resynchronizes the cached ID and group.
func (e *Engine) setCursor(i int) {
	e.current = i
	e.currentID = e.sequence[i]
	e.currentGroup = e.groupAt(i)
}

func (e *Engine) groupAt(i int) int {
	return sort.Search(len(e.groups), func(k int) bool {
		return e.groups[k].End > i
	})
}

// start arms the record under the cursor.
func (e *Engine) start() {
	r := e.records[e.currentID]
	if r.Status == StatusUncompleted {
		_ = r.transition(StatusStarted, time.Time{})
	}
}

// canUpdate is the single consistency gate for finalizing a record.
func (e *Engine) canUpdate(op string, r *Record) error {
	if r.Terminal() {
		return &StateError{Op: op, RecordID: r.ID, Reason: "already " + string(r.Status)}
	}
	if r.Status != StatusStarted {
		return &StateError{Op: op, RecordID: r.ID, Reason: "record is not started"}
	}
	return nil
}

// Complete marks the current record completed and advances.
func (e *Engine) Complete() error {
	return e.finalize(ActionComplete, StatusCompleted)
}

// Skip marks the current record skipped and advances.
func (e *Engine) Skip() error {
	return e.finalize(ActionSkip, StatusSkipped)
}

// Fail marks the current record failed and advances.
func (e *Engine) Fail() error {
	return e.finalize(ActionFail, StatusFailed)
}

func (e *Engine) finalize(action Action, status Status) error {
	r := e.records[e.currentID]
	if err := e.canUpdate(string(action), r); err != nil {
		return err
	}

	prev := r.Status
	if err := r.transition(status, e.now()); err != nil {
		return err
	}
	e.canUndo = true
	e.undoIndex = e.current

	// Reaching the end of the group is not an error for a finalize.
	_ = e.advance()

	e.publish(Event{
		RecordID:  r.ID,
		Action:    action,
		Previous:  prev,
		New:       status,
		Timestamp: *r.Timestamp,
	})
	return nil
}

// Advance moves the cursor according to the policy. It refuses while the
// current record is not finalized, and returns ErrOutOfBounds without
// moving when the cursor is already at the end of its group.
func (e *Engine) Advance() error {
	r := e.records[e.currentID]
	if !r.Terminal() {
		return &StateError{Op: "advance", RecordID: r.ID, Reason: "current record is not finalized"}
	}
	return e.advance()
}

func (e *Engine) advance() error {
	g := e.groups[e.currentGroup]
	next := e.policy.Next(Cursor{
		Index:      e.current,
		GroupStart: g.Start,
		GroupEnd:   g.End,
		Len:        len(e.sequence),
	})
	if next < g.Start {
		next = g.Start
	}
	if next >= g.End {
		next = g.End - 1
	}
	if next == e.current {
		return ErrOutOfBounds
	}

	if r := e.records[e.currentID]; r.Status == StatusStarted {
		_ = r.transition(StatusUncompleted, time.Time{})
	}
	e.setCursor(next)
	e.start()
	return nil
}

// Undo reverts the most recently finalized record and moves the cursor back
// to it. Only one undo is allowed per finalize.
func (e *Engine) Undo() error {
	if !e.canUndo {
		return &StateError{Op: "undo", Reason: "cannot undo"}
	}
	r := e.records[e.sequence[e.undoIndex]]
	if !r.Terminal() {
		return &StateError{Op: "undo", RecordID: r.ID, Reason: "record is not finalized"}
	}

	prev := r.Status
	if err := r.transition(StatusUncompleted, time.Time{}); err != nil {
		return err
	}
	if e.current != e.undoIndex {
		if cur := e.records[e.currentID]; cur.Status == StatusStarted {
			_ = cur.transition(StatusUncompleted, time.Time{})
		}
	}
	e.canUndo = false
	e.setCursor(e.undoIndex)
	e.start()

	e.publish(Event{
		RecordID:  r.ID,
		Action:    ActionUndo,
		Previous:  prev,
		New:       StatusUncompleted,
		Timestamp: e.now().UTC().Truncate(time.Millisecond),
	})
	return nil
}

func (e *Engine) publish(events ...Event) {
	for _, ev := range events {
		for _, h := range e.handlers {
			h(ev)
		}
	}
}

// Subscribe registers h for all subsequent events.
func (e *Engine) Subscribe(h EventHandler) {
	if h != nil {
		e.handlers = append(e.handlers, h)
	}
}

// ProtocolComplete reports whether every record in the sequence is terminal.
func (e *Engine) ProtocolComplete() bool {
	for _, id := range e.sequence {
		if !e.records[id].Terminal() {
			return false
		}
	}
	return true
}

// Classification is a point-in-time view of record statuses.
type Classification struct {
	Current      string              `json:"current"`
	CurrentGroup string              `json:"current_group"`
	Buckets      map[Status][]string `json:"buckets"`
}

// Count returns the number of records holding status s.
func (c Classification) Count(s Status) int {
	return len(c.Buckets[s])
}

// Classify recomputes the status buckets from the record map. IDs within a
// bucket are in sequence order.
func (e *Engine) Classify() Classification {
	c := Classification{
		Current:      e.currentID,
		CurrentGroup: e.groups[e.currentGroup].Name,
		Buckets:      make(map[Status][]string, len(Statuses)),
	}
	for _, s := range Statuses {
		c.Buckets[s] = []string{}
	}
	for _, id := range e.sequence {
		s := e.records[id].Status
		c.Buckets[s] = append(c.Buckets[s], id)
	}
	return c
}

// Record returns a copy of the record with the given ID.
func (e *Engine) Record(id string) (Record, bool) {
	r, ok := e.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// Current returns a copy of the record under the cursor.
func (e *Engine) Current() Record {
	return e.records[e.currentID].clone()
}

// CurrentIndex returns the cursor position in the sequence.
func (e *Engine) CurrentIndex() int { return e.current }

// CurrentGroup returns the group the cursor is in.
func (e *Engine) CurrentGroup() Group { return e.groups[e.currentGroup] }

// Groups returns the groups in sequence order.
func (e *Engine) Groups() []Group {
	out := make([]Group, len(e.groups))
	copy(out, e.groups)
	return out
}

// Sequence returns the record IDs in execution order.
func (e *Engine) Sequence() []string {
	out := make([]string, len(e.sequence))
	copy(out, e.sequence)
	return out
}

// Len returns the number of records in the sequence.
func (e *Engine) Len() int { return len(e.sequence) }

// CanUndo reports whether an undo is pending.
func (e *Engine) CanUndo() bool { return e.canUndo }
