// Package scenario builds the cartesian-product scenario grid a model's
// scenario groups describe, and assigns each combination a dense,
// deterministic index used throughout the engine to key per-scenario state,
// parameter lookups, and recorder output columns.
package scenario

import (
	"fmt"
	"strings"

	"pywr/internal/apperror"
)

// Group is one axis of the scenario grid, e.g. "climate" with members
// {"wet","dry","avg"} or "demand" with members {"low","high"}.
type Group struct {
	Name    string
	Members []string
}

// Index identifies one point in the scenario grid: Global is the dense,
// row-major index used to key per-scenario state; Coordinates maps each
// group name to the member selected on this axis.
type Index struct {
	Global      int
	Coordinates map[string]string
	// Ordinals holds the per-group member ordinal in group declaration
	// order, used by parameters whose value depends on "which scenario of
	// group X" rather than the member's string label.
	Ordinals []int
}

// Grid is the full cartesian product of a model's scenario groups, built
// once at load time. A model with no scenario groups declared still has a
// Grid of exactly one Index (the degenerate single-scenario case).
type Grid struct {
	Groups  []Group
	Indices []Index
}

// Build constructs the cartesian product of groups in declaration order,
// matching the row-major convention: the last group varies fastest. An
// empty groups slice yields the single-scenario grid.
func Build(groups []Group) (*Grid, error) {
	for _, g := range groups {
		if len(g.Members) == 0 {
			return nil, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("scenario group %q has no members", g.Name)).
				WithField("scenarios")
		}
	}

	if len(groups) == 0 {
		return &Grid{
			Groups: groups,
			Indices: []Index{{
				Global:      0,
				Coordinates: map[string]string{},
				Ordinals:    nil,
			}},
		}, nil
	}

	total := 1
	for _, g := range groups {
		total *= len(g.Members)
	}

	indices := make([]Index, 0, total)
	ordinals := make([]int, len(groups))
	for n := 0; n < total; n++ {
		coords := make(map[string]string, len(groups))
		ords := make([]int, len(groups))
		rem := n
		for gi := len(groups) - 1; gi >= 0; gi-- {
			size := len(groups[gi].Members)
			sel := rem % size
			rem /= size
			coords[groups[gi].Name] = groups[gi].Members[sel]
			ords[gi] = sel
		}
		copy(ordinals, ords)
		indices = append(indices, Index{Global: n, Coordinates: coords, Ordinals: ords})
	}

	return &Grid{Groups: groups, Indices: indices}, nil
}

// Len returns the total number of scenarios in the grid.
func (g *Grid) Len() int {
	return len(g.Indices)
}

// At returns the Index for the given global scenario number.
func (g *Grid) At(global int) Index {
	return g.Indices[global]
}

// Label renders a human-readable scenario label such as "climate=wet,demand=low",
// used in recorder output and error details.
func (idx Index) Label(groups []Group) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, fmt.Sprintf("%s=%s", g.Name, idx.Coordinates[g.Name]))
	}
	return strings.Join(parts, ",")
}

// OrdinalOf returns the member ordinal selected for the named group in this
// scenario, or -1 if the group is not part of the grid. Used by parameter
// families (e.g. "scenario index" lookups) that key off position rather
// than label.
func (g *Grid) OrdinalOf(idx Index, groupName string) int {
	for gi, grp := range g.Groups {
		if grp.Name == groupName {
			return idx.Ordinals[gi]
		}
	}
	return -1
}
