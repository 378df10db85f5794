package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
	"pywr/internal/scenario"
	"pywr/internal/tables"
)

// Build is the one contractual function this package exposes: it turns a
// Document into a *network.Model plus the table.Store backing Timeseries
// lookups. A malformed timestepper or scenario block is returned at once;
// every problem found after that is collected into an
// apperror.ValidationErrors rather than returned on the first failure, since
// schema errors are fatal at load time and a caller wants the whole list,
// not one at a time.
func Build(doc *Document) (*network.Model, *tables.Store, error) {
	var errs []error

	cal, err := buildCalendar(doc.Timestepper)
	if err != nil {
		return nil, nil, err
	}

	grid, err := buildScenarioGrid(doc.Scenarios)
	if err != nil {
		return nil, nil, err
	}

	m := network.New()
	m.Metadata = network.Metadata{Title: doc.Metadata.Title, Description: doc.Metadata.Description, MinimumVersion: doc.Metadata.MinimumVersion}
	m.Calendar = cal
	m.Scenario = grid

	store := tables.NewStore(cal)
	for _, tj := range doc.Network.Tables {
		t, err := tables.LoadCSV(tj.Name, tj.URL, tj.DateColumn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		store.Add(t)
	}
	for _, tj := range doc.Network.Timeseries {
		t, err := tables.LoadCSV(tj.Name, tj.URL, tj.DateColumn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		store.Add(t)
	}

	for _, raw := range doc.Network.Nodes {
		var nj NodeJSON
		if err := json.Unmarshal(raw, &nj); err != nil {
			errs = append(errs, apperror.Wrap(err, apperror.CodeSchemaError, "node decode failed"))
			continue
		}
		n, err := decodeNode(nj)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.AddNode(n)
	}

	for _, ej := range doc.Network.Edges {
		fromID := m.NodeID(ej.FromNode)
		toID := m.NodeID(ej.ToNode)
		if fromID < 0 {
			errs = append(errs, apperror.New(apperror.CodeBuildError, fmt.Sprintf("edge references unknown from_node %q", ej.FromNode)))
			continue
		}
		if toID < 0 {
			errs = append(errs, apperror.New(apperror.CodeBuildError, fmt.Sprintf("edge references unknown to_node %q", ej.ToNode)))
			continue
		}
		m.AddEdge(network.Edge{From: fromID, To: toID, FromSlot: network.Slot(ej.FromSlot), ToSlot: network.Slot(ej.ToSlot)})
	}

	for _, raw := range doc.Network.Parameters {
		var pj ParamJSON
		if err := json.Unmarshal(raw, &pj); err != nil {
			errs = append(errs, apperror.Wrap(err, apperror.CodeSchemaError, "parameter decode failed"))
			continue
		}
		p, err := decodeParam(pj, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.AddParameter(p)
	}

	for _, msj := range doc.Network.MetricSets {
		named := make([]network.NamedMetric, 0, len(msj.Metrics))
		for _, nmj := range msj.Metrics {
			mm, err := resolveMetric(nmj.Metric, m)
			if err != nil {
				errs = append(errs, apperror.Wrap(err, apperror.CodeSchemaError, fmt.Sprintf("metric set %q column %q", msj.Name, nmj.Name)))
				continue
			}
			named = append(named, network.NamedMetric{Name: nmj.Name, Metric: mm})
		}
		agg, err := msj.Aggregator.toAggregator()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.MetricSets = append(m.MetricSets, network.MetricSet{Name: msj.Name, Metrics: named, Aggregator: agg})
	}

	for _, oj := range doc.Network.Outputs {
		kind, err := parseOutputKind(oj.Kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.Outputs = append(m.Outputs, network.Output{Name: oj.Name, MetricSet: oj.MetricSet, Kind: kind, Path: oj.Path, DecimalPlaces: oj.DecimalPlaces})
	}

	errs = append(errs, m.Validate()...)

	if len(errs) > 0 {
		ve := apperror.NewValidationErrors()
		for _, e := range errs {
			ve.Add(toAppError(e))
		}
		return nil, nil, ve
	}
	return m, store, nil
}

// toAppError normalizes any error collected during Build into an
// *apperror.Error: errors already produced by this package's helpers are
// passed through, everything else (e.g. network.Model.Validate's plain
// fmt.Errorf values) is wrapped as a CodeBuildError.
func toAppError(err error) *apperror.Error {
	if ae, ok := err.(*apperror.Error); ok {
		return ae
	}
	return apperror.Wrap(err, apperror.CodeBuildError, "model validation failed")
}

func buildCalendar(tj Timestepper) (*calendar.Calendar, error) {
	start, err := time.Parse("2006-01-02", tj.Start)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSchemaError, "timestepper.start is not a valid date").WithField("timestepper.start")
	}
	end, err := time.Parse("2006-01-02", tj.End)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSchemaError, "timestepper.end is not a valid date").WithField("timestepper.end")
	}
	step := tj.Step
	if step == 0 {
		step = 1
	}
	return calendar.Timestepper{Start: start, End: end, StepDays: step}.Build()
}

func buildScenarioGrid(sb ScenariosBlock) (*scenario.Grid, error) {
	groups := make([]scenario.Group, 0, len(sb.Groups))
	for _, g := range sb.Groups {
		members := g.Labels
		if len(members) == 0 && g.Size > 0 {
			members = make([]string, g.Size)
			for i := range members {
				members[i] = fmt.Sprintf("%d", i)
			}
		}
		if len(g.Subset) > 0 {
			members = filterSubset(members, g.Subset)
		}
		groups = append(groups, scenario.Group{Name: g.Name, Members: members})
	}

	grid, err := scenario.Build(groups)
	if err != nil {
		return nil, err
	}
	if len(sb.Combinations) == 0 {
		return grid, nil
	}
	return filterCombinations(grid, groups, sb.Combinations), nil
}

func filterSubset(members, subset []string) []string {
	want := make(map[string]bool, len(subset))
	for _, s := range subset {
		want[s] = true
	}
	out := make([]string, 0, len(subset))
	for _, m := range members {
		if want[m] {
			out = append(out, m)
		}
	}
	return out
}

// filterCombinations restricts grid to the explicit tuples in combinations
// (one member label per group, in group declaration order), reassigning
// dense Global indices 0..n-1 over the surviving rows in the order given.
func filterCombinations(grid *scenario.Grid, groups []scenario.Group, combinations [][]string) *scenario.Grid {
	wanted := make(map[string]bool, len(combinations))
	for _, c := range combinations {
		wanted[combinationKey(c)] = true
	}

	var kept []scenario.Index
	for _, idx := range grid.Indices {
		key := make([]string, len(groups))
		for gi, g := range groups {
			key[gi] = idx.Coordinates[g.Name]
		}
		if wanted[combinationKey(key)] {
			idx.Global = len(kept)
			kept = append(kept, idx)
		}
	}
	return &scenario.Grid{Groups: groups, Indices: kept}
}

func combinationKey(labels []string) string {
	key := ""
	for _, l := range labels {
		key += l + "\x00"
	}
	return key
}

func parseOutputKind(s string) (network.OutputKind, error) {
	switch s {
	case "csv_long", "CSVLong":
		return network.OutputCSVLong, nil
	case "csv_wide", "CSVWide":
		return network.OutputCSVWide, nil
	case "aggregated_scalar", "AggregatedScalar":
		return network.OutputAggregatedScalar, nil
	case "xlsx", "XLSX":
		return network.OutputXLSX, nil
	case "hdf5", "HDF5":
		return network.OutputHDF5, nil
	case "parquet", "Parquet":
		return network.OutputParquet, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown output kind %q", s))
	}
}
