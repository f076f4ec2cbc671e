package sequence

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/franksops/welllit/engine"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("protocol validation failed")

// Kind classifies a validation problem.
type Kind string

const (
	KindEmpty                Kind = "empty"
	KindMissingField         Kind = "missing_field"
	KindDuplicateSource      Kind = "duplicate_source"
	KindDuplicateDestination Kind = "duplicate_destination"
)

// Diagnostic is one validation problem found in the input.
type Diagnostic struct {
	Kind Kind `json:"kind"`

	// Group is the source group of a duplicate source. Destinations are
	// unique across the whole input, so it is empty for them.
	Group string `json:"group,omitempty"`

	// Value is the offending locator, or the missing field name.
	Value string `json:"value,omitempty"`

	// Rows are the 1-based data rows involved.
	Rows []int `json:"rows"`
}

func (d Diagnostic) String() string {
	rows := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = strconv.Itoa(r)
	}
	switch d.Kind {
	case KindEmpty:
		return "protocol has no transfers"
	case KindMissingField:
		return fmt.Sprintf("row %s: missing %s", strings.Join(rows, ", "), d.Value)
	case KindDuplicateSource:
		return fmt.Sprintf("duplicate source %q in group %s at rows %s", d.Value, d.Group, strings.Join(rows, ", "))
	case KindDuplicateDestination:
		return fmt.Sprintf("duplicate destination %q at rows %s", d.Value, strings.Join(rows, ", "))
	}
	return fmt.Sprintf("%s %q at rows %s", d.Kind, d.Value, strings.Join(rows, ", "))
}

// ValidationError carries every problem found in a rejected input.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Config controls how rows become records.
type Config struct {
	// DefaultDestination labels the destination container of rows that do
	// not name one.
	DefaultDestination string

	// NewID assigns record identifiers. Defaults to random UUIDs.
	NewID func() string
}

// Build validates rows and groups them into a definition. Groups keep the
// order of their first row; records keep input order within a group. If any
// row is invalid no definition is returned.
func Build(rows []Row, cfg Config) (engine.Definition, error) {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if len(rows) == 0 {
		return engine.Definition{}, &ValidationError{Diagnostics: []Diagnostic{{Kind: KindEmpty, Rows: []int{}}}}
	}

	rows = slices.Clone(rows)
	var diags []Diagnostic
	sources := newDupIndex()
	destinations := newDupIndex()
	for i := range rows {
		row := &rows[i]
		if row.DestinationGroup == "" {
			row.DestinationGroup = cfg.DefaultDestination
		}
		missing := false
		for _, f := range []struct{ name, value string }{
			{"group", row.Group},
			{"source", row.Source},
			{"destination", row.Destination},
		} {
			if f.value == "" {
				diags = append(diags, Diagnostic{Kind: KindMissingField, Value: f.name, Rows: []int{row.Line}})
				missing = true
			}
		}
		if missing {
			continue
		}
		sources.add(row.Group, row.Source, row.Line)
		destinations.add("", row.Destination, row.Line)
	}
	diags = append(diags, sources.duplicates(KindDuplicateSource)...)
	diags = append(diags, destinations.duplicates(KindDuplicateDestination)...)
	if len(diags) > 0 {
		return engine.Definition{}, &ValidationError{Diagnostics: diags}
	}

	var def engine.Definition
	groupAt := map[string]int{}
	for _, row := range rows {
		gi, ok := groupAt[row.Group]
		if !ok {
			gi = len(def.Groups)
			groupAt[row.Group] = gi
			def.Groups = append(def.Groups, engine.GroupDefinition{Name: row.Group})
		}
		def.Groups[gi].Records = append(def.Groups[gi].Records, engine.Record{
			ID:               cfg.NewID(),
			Group:            row.Group,
			Source:           row.Source,
			Destination:      row.Destination,
			DestinationGroup: row.DestinationGroup,
			Status:           engine.StatusUncompleted,
		})
	}
	return def, nil
}

type dupKey struct {
	group, value string
}

// dupIndex records the rows each (group, locator) pair appears on, in first
// appearance order.
type dupIndex struct {
	order []dupKey
	rows  map[dupKey][]int
}

func newDupIndex() *dupIndex {
	return &dupIndex{rows: map[dupKey][]int{}}
}

func (d *dupIndex) add(group, value string, line int) {
	k := dupKey{group, value}
	if _, ok := d.rows[k]; !ok {
		d.order = append(d.order, k)
	}
	d.rows[k] = append(d.rows[k], line)
}

func (d *dupIndex) duplicates(kind Kind) []Diagnostic {
	var out []Diagnostic
	for _, k := range d.order {
		if rows := d.rows[k]; len(rows) > 1 {
			out = append(out, Diagnostic{Kind: kind, Group: k.group, Value: k.value, Rows: rows})
		}
	}
	return out
}

// CSVBuilder reads a CSV protocol and implements engine.SequenceBuilder.
type CSVBuilder struct {
	Source io.Reader
	Config Config

	checksum uint64
	size     int64
	rows     int
}

// NewCSVBuilder creates a builder reading from r.
func NewCSVBuilder(r io.Reader, cfg Config) *CSVBuilder {
	return &CSVBuilder{Source: r, Config: cfg}
}

// Build reads and validates the whole input.
func (b *CSVBuilder) Build() (engine.Definition, error) {
	if b.Source == nil {
		return engine.Definition{}, errors.New("no protocol input")
	}
	cr := NewChecksumReader(b.Source)
	rows, err := ReadRows(cr)
	if err != nil {
		return engine.Definition{}, err
	}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return engine.Definition{}, fmt.Errorf("failed to read protocol: %w", err)
	}
	b.checksum = cr.Checksum()
	b.size = cr.BytesRead()
	b.rows = len(rows)
	return Build(rows, b.Config)
}

// Checksum returns the CRC64 of the input consumed by Build.
func (b *CSVBuilder) Checksum() uint64 {
	return b.checksum
}

// Size returns the number of input bytes consumed by Build.
func (b *CSVBuilder) Size() int64 {
	return b.size
}

// Rows returns the number of data rows read by Build.
func (b *CSVBuilder) Rows() int {
	return b.rows
}
