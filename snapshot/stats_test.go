package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/varasto/types"
)

func TestSummarizeGroupings(t *testing.T) {
	s := fixtureSnapshot(t)
	summary := Summarize(s)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.ByKind[types.KindDatabase])
	assert.Equal(t, 1, summary.ByKind[types.KindHost])
	assert.Equal(t, 3, summary.ByCompartment["Production"])
	assert.Equal(t, 1, summary.ByCompartment["Dev"])
	assert.Equal(t, 2, summary.ByStatus["AVAILABLE"])
}

func TestSummarizeSumInvariant(t *testing.T) {
	s := fixtureSnapshot(t)
	summary := Summarize(s)

	sumKinds := 0
	for _, n := range summary.ByKind {
		sumKinds += n
	}
	sumCompartments := 0
	for _, n := range summary.ByCompartment {
		sumCompartments += n
	}
	sumStatus := 0
	for _, n := range summary.ByStatus {
		sumStatus += n
	}

	require.Equal(t, s.Len(), summary.Total)
	assert.Equal(t, s.Len(), sumKinds, "kind counts must sum to len(resources)")
	assert.Equal(t, s.Len(), sumCompartments, "compartment counts must sum to len(resources)")
	assert.Equal(t, s.Len(), sumStatus, "status counts must sum to len(resources)")
}

func TestSummarizeEmptySnapshot(t *testing.T) {
	s := testBuilder().Build(nil, nil, testSource())
	summary := Summarize(s)

	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.ByKind)
	assert.Empty(t, summary.ByCompartment)
	assert.Empty(t, summary.ByStatus)
}

func TestSummarizeUnknownStatus(t *testing.T) {
	compartments := []types.Compartment{{ID: "c", Name: "C"}}
	resources := []types.Resource{
		{ID: "r1", Name: "r1", Kind: types.KindHost, CompartmentID: "c"},
	}
	s := testBuilder().Build(compartments, resources, testSource())
	summary := Summarize(s)

	assert.Equal(t, 1, summary.ByStatus["unknown"])
}
