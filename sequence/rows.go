// Package sequence turns tabular transfer protocols into the ordered, grouped
// definition the engine walks.
package sequence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Row is one transfer line of a protocol.
type Row struct {
	// Line is the 1-based index of the data row, header excluded.
	Line int

	Group            string
	Source           string
	Destination      string
	DestinationGroup string
}

type column int

const (
	colGroup column = iota
	colSource
	colDestination
	colDestinationGroup
)

var columnNames = map[column]string{
	colGroup:            "group",
	colSource:           "source",
	colDestination:      "destination",
	colDestinationGroup: "destination_group",
}

// columnAliases maps normalized header names to columns. The plate/well
// names are the ones lab exports use.
var columnAliases = map[string]column{
	"group":               colGroup,
	"batch":               colGroup,
	"plate":               colGroup,
	"source_plate":        colGroup,
	"source":              colSource,
	"source_well":         colSource,
	"source_locator":      colSource,
	"destination":         colDestination,
	"dest":                colDestination,
	"dest_well":           colDestination,
	"destination_well":    colDestination,
	"destination_locator": colDestination,
	"destination_group":   colDestinationGroup,
	"dest_plate":          colDestinationGroup,
	"destination_plate":   colDestinationGroup,
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(strings.ReplaceAll(h, "-", " ")), "_")
}

// ReadRows parses a CSV protocol. The first record is the header; group,
// source and destination columns are required, destination_group is optional.
// Lines starting with '#' are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := map[column]int{}
	for i, h := range header {
		if c, ok := columnAliases[normalizeHeader(h)]; ok {
			if _, dup := index[c]; !dup {
				index[c] = i
			}
		}
	}
	for _, c := range []column{colGroup, colSource, colDestination} {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnNames[c])
		}
	}

	field := func(rec []string, c column) string {
		i, ok := index[c]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		rows = append(rows, Row{
			Line:             line,
			Group:            field(rec, colGroup),
			Source:           field(rec, colSource),
			Destination:      field(rec, colDestination),
			DestinationGroup: field(rec, colDestinationGroup),
		})
	}
	return rows, nil
}
