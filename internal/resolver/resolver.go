// Package resolver builds the parameter dependency graph, classifies each
// parameter as Const/Simple/General, and produces the three ordered
// evaluation lists the simulator walks every timestep. Cycle detection
// uses Tarjan's SCC algorithm, with every iteration over a map sorted
// first so two runs over the same model always pick the same tie-break
// order.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

// Class is the evaluation tier a parameter is assigned: Const parameters
// read only constants and other Consts, Simple ones also read time/calendar
// inputs, General ones may read node or edge metrics. The simulator
// evaluates Const and Simple before the LP solve every timestep; a General
// parameter runs before or after the solve as internal/simulator's
// splitGeneralOrder decides from its flow-metric dependencies.
type Class int

const (
	ClassConst Class = iota
	ClassSimple
	ClassGeneral
)

func (c Class) String() string {
	switch c {
	case ClassConst:
		return "Const"
	case ClassSimple:
		return "Simple"
	default:
		return "General"
	}
}

// Resolution is the result of resolving a model's parameters: a total
// declaration-stable topological order split into the three class-ordered
// lists the simulator consumes, plus a lookup from name to Class.
type Resolution struct {
	ConstOrder   []string
	SimpleOrder  []string
	GeneralOrder []string

	class map[string]Class
	index map[string]int // declaration index, for stable tie-breaking
}

// ClassOf reports the resolved Class of a named parameter.
func (r *Resolution) ClassOf(name string) Class {
	return r.class[name]
}

// Resolve builds the dependency graph over m's parameters, detects cycles,
// and returns the three ordered evaluation lists. A cycle that involves a
// parameter aborts with CodeSchemaError carrying the cycle's name chain;
// cycles that only involve node flows are not representable here since
// Metric values never name a parameter in that case, and are resolved by
// the LP instead.
func Resolve(m *network.Model) (*Resolution, error) {
	index := make(map[string]int, len(m.Parameters))
	byName := make(map[string]network.Parameter, len(m.Parameters))
	for i, p := range m.Parameters {
		index[p.Name] = i
		byName[p.Name] = p
	}

	deps := make(map[string][]string, len(m.Parameters))
	for _, p := range m.Parameters {
		deps[p.Name] = paramDeps(p.Metrics)
	}

	order, err := topoSort(m.Parameters, deps, index)
	if err != nil {
		return nil, err
	}

	class := make(map[string]Class, len(m.Parameters))
	for _, name := range order {
		p := byName[name]
		class[name] = classify(p.Metrics, deps[name], class)
	}

	res := &Resolution{class: class, index: index}
	for _, name := range order {
		switch class[name] {
		case ClassConst:
			res.ConstOrder = append(res.ConstOrder, name)
		case ClassSimple:
			res.SimpleOrder = append(res.SimpleOrder, name)
		default:
			res.GeneralOrder = append(res.GeneralOrder, name)
		}
	}
	return res, nil
}

// paramDeps flattens every ParameterValue reference reachable from metrics,
// including those nested inside AggregatedMetric operands.
func paramDeps(metrics []network.Metric) []string {
	var out []string
	var walk func(ms []network.Metric)
	walk = func(ms []network.Metric) {
		for _, mt := range ms {
			switch mt.Kind {
			case network.MetricParameterValue:
				out = append(out, mt.ParameterName)
			case network.MetricAggregated:
				walk(mt.Operands)
			}
		}
	}
	walk(metrics)
	return out
}

// usesNodeOrEdgeMetric reports whether any metric reachable from ms reads
// current-timestep flow/volume/loss state, which forces General
// classification regardless of what the parameter's own dependencies are.
func usesNodeOrEdgeMetric(metrics []network.Metric) bool {
	for _, mt := range metrics {
		switch mt.Kind {
		case network.MetricNodeInflow, network.MetricNodeOutflow, network.MetricNodeVolume,
			network.MetricNodeLoss, network.MetricEdgeFlow:
			return true
		case network.MetricAggregated:
			if usesNodeOrEdgeMetric(mt.Operands) {
				return true
			}
		}
	}
	return false
}

// usesTimeseries reports whether any metric reachable from ms reads a
// timeseries table, which is a Simple-tier (not Const-tier) input.
func usesTimeseries(metrics []network.Metric) bool {
	for _, mt := range metrics {
		switch mt.Kind {
		case network.MetricTimeseries:
			return true
		case network.MetricAggregated:
			if usesTimeseries(mt.Operands) {
				return true
			}
		}
	}
	return false
}

func classify(metrics []network.Metric, deps []string, class map[string]Class) Class {
	if usesNodeOrEdgeMetric(metrics) {
		return ClassGeneral
	}
	best := ClassConst
	if usesTimeseries(metrics) {
		best = ClassSimple
	}
	for _, d := range deps {
		if c, ok := class[d]; ok && c > best {
			best = c
		}
	}
	return best
}

// topoSort first runs Tarjan's SCC over the parameter dependency graph to
// reject any cycle, then produces the actual evaluation order with Kahn's
// algorithm, breaking ties between simultaneously-ready parameters by
// declaration index so the order is reproducible run to run.
func topoSort(params []network.Parameter, deps map[string][]string, index map[string]int) ([]string, error) {
	t := &tarjan{
		deps:    deps,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	sort.Strings(names) // deterministic visiting order independent of declaration order

	for _, name := range names {
		if _, visited := t.index[name]; !visited {
			if err := t.strongConnect(name); err != nil {
				return nil, err
			}
		}
	}

	return kahn(names, deps, index)
}

// kahn produces a dependency-respecting order (leaves — parameters with no
// unresolved dependencies — first), breaking ties among simultaneously-ready
// parameters by declaration index.
func kahn(names []string, deps map[string][]string, index map[string]int) ([]string, error) {
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names)) // w -> [v : w in deps[v]]
	for _, v := range names {
		inDegree[v] = len(deps[v])
		for _, w := range deps[v] {
			dependents[w] = append(dependents[w], v)
		}
	}

	var ready []string
	for _, v := range names {
		if inDegree[v] == 0 {
			ready = append(ready, v)
		}
	}

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, dep := range dependents[v] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(names) {
		// Tarjan already rejects true cycles; reaching here would mean a
		// dependency name that does not resolve to a declared parameter.
		return nil, apperror.New(apperror.CodeSchemaError, "parameter dependency graph did not resolve fully (dangling reference)").
			WithField("network.parameters")
	}
	return order, nil
}

type tarjan struct {
	deps       map[string][]string
	counter    int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	sccs       [][]string
}

func (t *tarjan) strongConnect(v string) error {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	depNames := append([]string(nil), t.deps[v]...)
	sort.Strings(depNames)
	for _, w := range depNames {
		if _, visited := t.index[w]; !visited {
			if err := t.strongConnect(w); err != nil {
				return err
			}
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			sort.Strings(scc)
			return apperror.New(apperror.CodeSchemaError,
				fmt.Sprintf("circular parameter dependency: %s", strings.Join(scc, "->"))).
				WithField("network.parameters")
		}
		if len(scc) == 1 && contains(t.deps[scc[0]], scc[0]) {
			return apperror.New(apperror.CodeSchemaError,
				fmt.Sprintf("circular parameter dependency: %s->%s", scc[0], scc[0])).
				WithField("network.parameters")
		}
		t.sccs = append(t.sccs, scc)
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
