package lp

// Update is the small set of per-timestep numeric changes the simulator
// applies to a Problem's already-compiled structure: costs and
// coefficients that depend on Simple/General parameter values, and row/
// column bounds that depend on storage volumes, timestep-dependent
// max_flow, or virtual-storage remaining capacity. The Problem's shape
// (which columns/rows exist) never changes after Build.
type Update struct {
	ColumnCost   map[int]float64
	ColumnBounds map[int][2]float64
	RowBounds    map[int][2]float64
	Coeffs       map[[2]int]float64 // [rowID, colID] -> new coefficient
}

// NewUpdate returns an empty Update ready for incremental population.
func NewUpdate() *Update {
	return &Update{
		ColumnCost:   make(map[int]float64),
		ColumnBounds: make(map[int][2]float64),
		RowBounds:    make(map[int][2]float64),
		Coeffs:       make(map[[2]int]float64),
	}
}

// SetCost stages a new per-unit cost for column c.
func (u *Update) SetCost(c int, cost float64) { u.ColumnCost[c] = cost }

// SetColumnBounds stages a new (lower, upper) bound pair for column c.
func (u *Update) SetColumnBounds(c int, lower, upper float64) {
	u.ColumnBounds[c] = [2]float64{lower, upper}
}

// SetRowBounds stages a new (lower, upper) bound pair for row r.
func (u *Update) SetRowBounds(r int, lower, upper float64) {
	u.RowBounds[r] = [2]float64{lower, upper}
}

// SetCoeff stages a new coefficient for row r, column c.
func (u *Update) SetCoeff(r, c int, v float64) {
	u.Coeffs[[2]int{r, c}] = v
}

// Apply mutates p in place to reflect every staged change, used by
// in-process solvers (the reference simplex backend) that hold the full
// Problem rather than a compiled opaque Handle.
func (u *Update) Apply(p *Problem) {
	for c, cost := range u.ColumnCost {
		p.Columns[c].Cost = cost
	}
	for c, b := range u.ColumnBounds {
		p.Columns[c].Lower, p.Columns[c].Upper = b[0], b[1]
	}
	for r, b := range u.RowBounds {
		p.Rows[r].Lower, p.Rows[r].Upper = b[0], b[1]
	}
	for rc, v := range u.Coeffs {
		p.Rows[rc[0]].Coeffs[rc[1]] = v
	}
}
