package sequence

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franksops/welllit/engine"
)

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func TestReadRows(t *testing.T) {
	input := "\ufeffSource Plate, Source Well, Dest Well, Dest Plate\n" +
		"# comment line\n" +
		"SP000001, A1, B1,\n" +
		"SP000001, A2, B2, DP2\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Line: 1, Group: "SP000001", Source: "A1", Destination: "B1"}, rows[0])
	assert.Equal(t, Row{Line: 2, Group: "SP000001", Source: "A2", Destination: "B2", DestinationGroup: "DP2"}, rows[1])
}

func TestReadRows_MissingColumn(t *testing.T) {
	_, err := ReadRows(strings.NewReader("group,source\nP1,A1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorContains(t, err, "destination")

	_, err = ReadRows(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadRows_ShortRows(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("group,source,destination\nP1,A1\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Destination)
}

func TestBuild_GroupsInFirstAppearanceOrder(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P2", Source: "A1", Destination: "B1"},
		{Line: 2, Group: "P1", Source: "A1", Destination: "B2"},
		{Line: 3, Group: "P2", Source: "A2", Destination: "B3", DestinationGroup: "OTHER"},
	}

	def, err := Build(rows, Config{DefaultDestination: "DEST", NewID: counterIDs()})
	require.NoError(t, err)
	require.Len(t, def.Groups, 2)
	assert.Equal(t, 3, def.Len())

	p2 := def.Groups[0]
	assert.Equal(t, "P2", p2.Name)
	require.Len(t, p2.Records, 2)
	assert.Equal(t, engine.Record{
		ID: "t1", Group: "P2", Source: "A1", Destination: "B1",
		DestinationGroup: "DEST", Status: engine.StatusUncompleted,
	}, p2.Records[0])
	assert.Equal(t, "OTHER", p2.Records[1].DestinationGroup)

	assert.Equal(t, "P1", def.Groups[1].Name)
	assert.Equal(t, "t2", def.Groups[1].Records[0].ID)
	assert.Empty(t, rows[0].DestinationGroup, "input rows are not modified")
}

func TestBuild_DefaultIDsAreUnique(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P1", Source: "A1", Destination: "B1"},
		{Line: 2, Group: "P1", Source: "A2", Destination: "B2"},
	}
	def, err := Build(rows, Config{})
	require.NoError(t, err)

	a, b := def.Groups[0].Records[0].ID, def.Groups[0].Records[1].ID
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestBuild_RejectsDuplicateDestination(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P1", Source: "A1", Destination: "D1"},
		{Line: 2, Group: "P2", Source: "A1", Destination: "D1"},
	}

	ids := 0
	def, err := Build(rows, Config{DefaultDestination: "DEST", NewID: func() string { ids++; return "x" }})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, def.Groups)
	assert.Zero(t, ids, "no record is created for a rejected input")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Diagnostics, 1)
	assert.Equal(t, Diagnostic{Kind: KindDuplicateDestination, Value: "D1", Rows: []int{1, 2}}, ve.Diagnostics[0])
	assert.Contains(t, err.Error(), `duplicate destination "D1" at rows 1, 2`)
}

func TestBuild_RejectsDestinationReusedAcrossContainers(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P1", Source: "A1", Destination: "D1", DestinationGroup: "X"},
		{Line: 2, Group: "P1", Source: "A2", Destination: "D1", DestinationGroup: "Y"},
	}
	def, err := Build(rows, Config{})
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, def.Len())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Diagnostics, 1)
	assert.Equal(t, Diagnostic{Kind: KindDuplicateDestination, Value: "D1", Rows: []int{1, 2}}, ve.Diagnostics[0])
}

func TestBuild_RejectsDuplicateSourceWithinGroup(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P1", Source: "A1", Destination: "D1"},
		{Line: 2, Group: "P2", Source: "A1", Destination: "D2"},
		{Line: 3, Group: "P1", Source: "A1", Destination: "D3"},
		{Line: 4, Group: "P1", Source: "A1", Destination: "D4"},
	}

	_, err := Build(rows, Config{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Diagnostics, 1)
	assert.Equal(t, Diagnostic{Kind: KindDuplicateSource, Group: "P1", Value: "A1", Rows: []int{1, 3, 4}}, ve.Diagnostics[0])
}

func TestBuild_ReportsEveryProblem(t *testing.T) {
	rows := []Row{
		{Line: 1, Group: "P1", Source: "A1", Destination: "D1"},
		{Line: 2, Group: "P1", Source: "", Destination: "D2"},
		{Line: 3, Group: "P1", Source: "A1", Destination: "D1"},
	}

	_, err := Build(rows, Config{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	kinds := []Kind{}
	for _, d := range ve.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []Kind{KindMissingField, KindDuplicateSource, KindDuplicateDestination}, kinds)
	assert.Equal(t, []int{2}, ve.Diagnostics[0].Rows)
}

func TestBuild_EmptyInput(t *testing.T) {
	_, err := Build(nil, Config{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindEmpty, ve.Diagnostics[0].Kind)
}

func TestCSVBuilder_FeedsEngine(t *testing.T) {
	input := "group,source,destination\nP1,A1,B1\nP1,A2,B2\nP2,A1,B3\n"
	b := NewCSVBuilder(strings.NewReader(input), Config{DefaultDestination: "DEST", NewID: counterIDs()})

	e, err := engine.New(b)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Len())
	assert.Equal(t, 3, b.Rows())
	assert.Equal(t, int64(len(input)), b.Size())
	assert.NotZero(t, b.Checksum())
	assert.Equal(t, []string{"t1", "t2"}, e.GroupRecords("P1"))
	assert.Equal(t, "t1", e.Current().ID)
}

func TestCSVBuilder_InvalidInputBuildsNoEngine(t *testing.T) {
	input := "group,source,destination\nP1,A1,D1\nP2,A2,D1\n"
	e, err := engine.New(NewCSVBuilder(strings.NewReader(input), Config{}))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, e)
}
