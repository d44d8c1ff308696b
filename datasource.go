package thrush

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// fieldNameRe matches every character rrdtool rejects in a DS name.
var fieldNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// maxFieldNameLen is the DS name length limit imposed by rrdtool.
const maxFieldNameLen = 19

// SanitizeFieldName derives the canonical field name the tool will see:
// characters outside [a-zA-Z0-9_] are stripped and the remainder is
// truncated to 19 characters. An empty result means the declared name is
// unusable; CompileSchema rejects it.
func SanitizeFieldName(name string) string {
	name = fieldNameRe.ReplaceAllString(name, "")
	if len(name) > maxFieldNameLen {
		name = name[:maxFieldNameLen]
	}
	return name
}

// SourceKind identifies how rrdtool interprets samples for a data source.
type SourceKind int

const (
	// SourceGauge stores sampled values as-is.
	SourceGauge SourceKind = iota
	// SourceCounter stores the rate derived from an ever-increasing counter.
	SourceCounter
	// SourceDerive stores the rate of change without overflow handling.
	SourceDerive
	// SourceAbsolute stores the rate assuming the counter resets on read.
	SourceAbsolute
	// SourceCompute stores values computed from other sources via an RPN
	// expression instead of fed samples.
	SourceCompute
)

// String returns the tool's name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceGauge:
		return "GAUGE"
	case SourceCounter:
		return "COUNTER"
	case SourceDerive:
		return "DERIVE"
	case SourceAbsolute:
		return "ABSOLUTE"
	case SourceCompute:
		return "COMPUTE"
	default:
		return "UNKNOWN"
	}
}

// parseSourceKind resolves a case-insensitive kind name from a schema file.
func parseSourceKind(s string) (SourceKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GAUGE":
		return SourceGauge, true
	case "COUNTER":
		return SourceCounter, true
	case "DERIVE":
		return SourceDerive, true
	case "ABSOLUTE":
		return SourceAbsolute, true
	case "COMPUTE":
		return SourceCompute, true
	}
	return 0, false
}

// DataSource declares one measured or computed quantity of a schema.
// Min and Max bound valid samples; NaN on either side means unbounded and
// renders as the tool's "U". Expr is the RPN expression for SourceCompute
// and ignored otherwise. The canonical name is assigned by CompileSchema.
type DataSource struct {
	name string

	Kind      SourceKind
	Heartbeat time.Duration
	Min       float64
	Max       float64
	Expr      string
}

// NewGauge declares an unbounded GAUGE source with the given heartbeat.
func NewGauge(heartbeat time.Duration) DataSource {
	return newSource(SourceGauge, heartbeat)
}

// NewCounter declares an unbounded COUNTER source with the given heartbeat.
func NewCounter(heartbeat time.Duration) DataSource {
	return newSource(SourceCounter, heartbeat)
}

// NewDerive declares an unbounded DERIVE source with the given heartbeat.
func NewDerive(heartbeat time.Duration) DataSource {
	return newSource(SourceDerive, heartbeat)
}

// NewAbsolute declares an unbounded ABSOLUTE source with the given heartbeat.
func NewAbsolute(heartbeat time.Duration) DataSource {
	return newSource(SourceAbsolute, heartbeat)
}

// NewCompute declares a COMPUTE source fed by the RPN expression expr.
// Expression operands refer to other sources by canonical field name.
func NewCompute(expr string) DataSource {
	return DataSource{
		Kind: SourceCompute,
		Min:  math.NaN(),
		Max:  math.NaN(),
		Expr: expr,
	}
}

func newSource(kind SourceKind, heartbeat time.Duration) DataSource {
	return DataSource{
		Kind:      kind,
		Heartbeat: heartbeat,
		Min:       math.NaN(),
		Max:       math.NaN(),
	}
}

// WithBounds returns a copy of the source with sample bounds set. Use NaN
// to leave one side unbounded.
func (ds DataSource) WithBounds(min, max float64) DataSource {
	ds.Min = min
	ds.Max = max
	return ds
}

// Name returns the canonical field name. It is empty until the source is
// compiled into a Schema.
func (ds DataSource) Name() string {
	return ds.name
}

// String renders the DS directive exactly as passed to rrdtool create.
func (ds DataSource) String() string {
	if ds.Kind == SourceCompute {
		return fmt.Sprintf("DS:%s:%s:%s", ds.name, ds.Kind, ds.Expr)
	}
	return fmt.Sprintf("DS:%s:%s:%s:%s:%s",
		ds.name,
		ds.Kind,
		formatSeconds(ds.Heartbeat),
		formatValue(ds.Min),
		formatValue(ds.Max),
	)
}

// named returns a copy carrying its canonical field name.
func (ds DataSource) named(name string) DataSource {
	ds.name = name
	return ds
}

// validate reports the declaration faults of a single source.
func (ds DataSource) validate(declared string) []*SchemaError {
	var errs []*SchemaError
	if ds.Kind == SourceCompute {
		if strings.TrimSpace(ds.Expr) == "" {
			errs = append(errs, &SchemaError{Element: declared, Message: "compute source needs an RPN expression"})
		}
		return errs
	}
	if ds.Heartbeat < time.Second {
		errs = append(errs, &SchemaError{Element: declared, Message: "heartbeat must be at least one second"})
	}
	if !math.IsNaN(ds.Min) && !math.IsNaN(ds.Max) && ds.Min > ds.Max {
		errs = append(errs, &SchemaError{Element: declared, Message: "min bound exceeds max bound"})
	}
	return errs
}
