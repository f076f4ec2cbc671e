package engine

// GroupAdvance reports the outcome of NextGroup.
type GroupAdvance struct {
	// From is the group the cursor was in.
	From string

	// To is the group the cursor moved to. Empty when it did not move.
	To string

	// ForceSkipped lists records skipped by the override, in sequence order.
	ForceSkipped []string

	// Done is set when NextGroup was called on the last group and every
	// record in the protocol is terminal.
	Done bool
}

// Moved reports whether the cursor entered a new group.
func (a GroupAdvance) Moved() bool { return a.To != "" }

// SetOverride arms or disarms the force-skip of the current group's
// remaining records on the next call to NextGroup.
func (e *Engine) SetOverride(on bool) { e.override = on }

// Override reports whether the force-skip is armed.
func (e *Engine) Override() bool { return e.override }

// GroupComplete reports whether every record of the named group is terminal.
// Unknown groups are never complete.
func (e *Engine) GroupComplete(name string) bool {
	i, ok := e.groupIdx[name]
	if !ok {
		return false
	}
	return len(e.pending(e.groups[i])) == 0
}

// Remaining returns the number of non-terminal records in the named group.
func (e *Engine) Remaining(name string) int {
	i, ok := e.groupIdx[name]
	if !ok {
		return 0
	}
	return len(e.pending(e.groups[i]))
}

// GroupRecords returns the IDs of the named group in sequence order.
func (e *Engine) GroupRecords(name string) []string {
	i, ok := e.groupIdx[name]
	if !ok {
		return nil
	}
	g := e.groups[i]
	out := make([]string, g.Len())
	copy(out, e.sequence[g.Start:g.End])
	return out
}

func (e *Engine) pending(g Group) []string {
	var ids []string
	for _, id := range e.sequence[g.Start:g.End] {
		if !e.records[id].Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// NextGroup moves the cursor to the first record of the next group.
//
// If the current group still has non-terminal records it returns a
// *GroupIncompleteError unless override is set, in which case those records
// are skipped first and override is cleared. On the last group it changes
// nothing and reports whether the protocol is complete.
func (e *Engine) NextGroup() (GroupAdvance, error) {
	g := e.groups[e.currentGroup]
	res := GroupAdvance{From: g.Name}

	if e.currentGroup == len(e.groups)-1 {
		res.Done = e.ProtocolComplete()
		return res, nil
	}

	remaining := e.pending(g)
	if len(remaining) > 0 && !e.override {
		return res, &GroupIncompleteError{Group: g.Name, Remaining: len(remaining)}
	}

	for _, id := range remaining {
		if r := e.records[id]; !CanTransition(r.Status, StatusSkipped) {
			return res, &StateError{Op: "next group", RecordID: id, Reason: "cannot skip " + string(r.Status)}
		}
	}

	events := make([]Event, 0, len(remaining))
	for _, id := range remaining {
		r := e.records[id]
		prev := r.Status
		_ = r.transition(StatusSkipped, e.now())
		events = append(events, Event{
			RecordID:  id,
			Action:    ActionForceSkip,
			Previous:  prev,
			New:       StatusSkipped,
			Timestamp: *r.Timestamp,
		})
	}

	next := e.groups[e.currentGroup+1]
	e.override = false
	e.canUndo = false
	e.setCursor(next.Start)
	e.start()

	res.To = next.Name
	res.ForceSkipped = remaining
	e.publish(events...)
	return res, nil
}
