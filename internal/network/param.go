package network

// ParamKind identifies which built-in parameter family a Parameter belongs
// to. Dispatch on Kind happens once, at arena-build time in internal/params,
// so the simulator's hot loop never type-switches.
type ParamKind int

const (
	ParamUnspecified ParamKind = iota
	ParamConstant
	ParamDailyProfile
	ParamMonthlyProfile
	ParamAggregated
	ParamControlCurveIndex
	ParamPolynomial
	ParamInterpolated
	ParamAsymmetric
	ParamThreshold
	ParamDelay
	ParamMuskingum
	ParamTimeseries
	ParamExternal
)

func (k ParamKind) String() string {
	switch k {
	case ParamConstant:
		return "Constant"
	case ParamDailyProfile:
		return "DailyProfile"
	case ParamMonthlyProfile:
		return "MonthlyProfile"
	case ParamAggregated:
		return "Aggregated"
	case ParamControlCurveIndex:
		return "ControlCurveIndex"
	case ParamPolynomial:
		return "Polynomial"
	case ParamInterpolated:
		return "Interpolated"
	case ParamAsymmetric:
		return "Asymmetric"
	case ParamThreshold:
		return "Threshold"
	case ParamDelay:
		return "Delay"
	case ParamMuskingum:
		return "Muskingum"
	case ParamTimeseries:
		return "Timeseries"
	case ParamExternal:
		return "External"
	default:
		return "Unspecified"
	}
}

// ParamConfig is implemented by every per-kind parameter configuration
// struct, the same closed-sum-type pattern NodeConfig uses.
type ParamConfig interface {
	paramConfig()
}

// Parameter is one named, typed coefficient source. Its declared Metrics are
// used by internal/resolver to build the parameter dependency graph before
// any parameter is evaluated.
type Parameter struct {
	Name    string
	Kind    ParamKind
	Config  ParamConfig
	Metrics []Metric
}

// ConstantParamConfig always returns Value.
type ConstantParamConfig struct {
	Value float64
}

func (ConstantParamConfig) paramConfig() {}

// InterpDay selects how a MonthlyProfile parameter treats a
// requested day between two declared points.
type InterpDay int

const (
	InterpNone InterpDay = iota
	InterpLinear
)

// DailyProfileConfig holds one coefficient per day of a 365 or 366 day year,
// indexed by the timestep's day-of-year.
type DailyProfileConfig struct {
	Values [366]float64
	Leap   bool
}

func (DailyProfileConfig) paramConfig() {}

// MonthlyProfileConfig holds one coefficient per calendar month, optionally
// linearly interpolated across month midpoints.
type MonthlyProfileConfig struct {
	Values [12]float64
	Interp InterpDay
}

func (MonthlyProfileConfig) paramConfig() {}

// AggregatedParamConfig reduces its Metrics (stored on Parameter) with Op.
type AggregatedParamConfig struct {
	Op AggregateOp
}

func (AggregatedParamConfig) paramConfig() {}

// ControlCurveIndexConfig returns the zero-based index of the first control
// curve (evaluated in order) whose value the storage node's proportional
// volume (Parameter.Metrics[0]) is at or above; returns len(Curves) if the
// volume is below every curve.
type ControlCurveIndexConfig struct {
	// Curves are parameter names, evaluated via Metrics[1:] in declaration
	// order; Metrics[0] is always the storage proportional-volume metric.
}

func (ControlCurveIndexConfig) paramConfig() {}

// PolynomialConfig evaluates a univariate polynomial in the single metric
// Parameter.Metrics[0]: sum(Coefficients[i] * x^i).
type PolynomialConfig struct {
	Coefficients []float64
}

func (PolynomialConfig) paramConfig() {}

// InterpolatedConfig piecewise-linearly interpolates Values at the metric
// read from Parameter.Metrics[0], using Points as the x-axis.
type InterpolatedConfig struct {
	Points []float64
	Values []float64
}

func (InterpolatedConfig) paramConfig() {}

// AsymmetricConfig applies RisingFactor when the metric increased since the
// previous timestep and FallingFactor when it decreased, scaling the metric
// read from Parameter.Metrics[0].
type AsymmetricConfig struct {
	RisingFactor  float64
	FallingFactor float64
}

func (AsymmetricConfig) paramConfig() {}

// ThresholdOp selects the comparison a Threshold parameter applies between
// its metric and Threshold.
type ThresholdOp int

const (
	ThresholdLT ThresholdOp = iota
	ThresholdLE
	ThresholdGT
	ThresholdGE
)

// ThresholdConfig returns ValueTrue when Metrics[0] Op Threshold holds,
// ValueFalse otherwise.
type ThresholdConfig struct {
	Threshold  float64
	Op         ThresholdOp
	ValueTrue  float64
	ValueFalse float64
}

func (ThresholdConfig) paramConfig() {}

// DelayParamConfig is a pure-value delay (distinct from the Delay *node*):
// returns the value Metrics[0] held Steps timesteps ago, or Initial before
// enough history has accumulated.
type DelayParamConfig struct {
	Steps   int
	Initial float64
}

func (DelayParamConfig) paramConfig() {}

// MuskingumConfig implements the Muskingum flow-routing recursion
// O_t = C0*I_t + C1*I_{t-1} + C2*O_{t-1}, with C0/C1/C2 derived from Δt, K
// and X (internal/params recomputes them each time the parameter is evaluated).
type MuskingumConfig struct {
	K float64 // storage time constant, days
	X float64 // weighting factor, 0..0.5
}

func (MuskingumConfig) paramConfig() {}

// TimeseriesParamConfig reads one column of a named table, selecting the row
// by calendar alignment to the current timestep (or an explicit RowOffset
// relative to it, used by lagged references).
type TimeseriesParamConfig struct {
	Table      string
	Column     string
	RowOffset  int
}

func (TimeseriesParamConfig) paramConfig() {}

// ExternalParamConfig wraps an opaque user-supplied callable, the Go
// equivalent of a Python-style external parameter type. One Callable is
// constructed per scenario so state is never shared across workers (see
// internal/params).
type ExternalParamConfig struct {
	CallableName string
}

func (ExternalParamConfig) paramConfig() {}
