package engine

// GroupDefinition is one named batch of records in execution order.
type GroupDefinition struct {
	Name    string
	Records []Record
}

// Definition is the ordered, grouped output of a SequenceBuilder.
type Definition struct {
	Groups []GroupDefinition
}

// Build returns d itself, so a ready Definition can be passed to New.
func (d Definition) Build() (Definition, error) {
	return d, nil
}

// Len returns the total number of records across all groups.
func (d Definition) Len() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Records)
	}
	return n
}

// SequenceBuilder produces the definition an Engine is constructed from.
// A builder that returns an error must not return a usable definition.
type SequenceBuilder interface {
	Build() (Definition, error)
}

// BuilderFunc adapts a function to SequenceBuilder.
type BuilderFunc func() (Definition, error)

func (f BuilderFunc) Build() (Definition, error) { return f() }

// Group is a contiguous range [Start, End) of the sequence.
type Group struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Len returns the number of records in the group.
func (g Group) Len() int { return g.End - g.Start }

// Contains reports whether the sequence index i falls inside the group.
func (g Group) Contains(i int) bool { return i >= g.Start && i < g.End }
