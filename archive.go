package thrush

import (
	"fmt"
	"strconv"
	"strings"
)

// ConsolidationFunc identifies how rrdtool condenses primary data points
// into an archive's rows.
type ConsolidationFunc int

const (
	// CFAverage keeps the mean of the consolidated points.
	CFAverage ConsolidationFunc = iota
	// CFMin keeps the smallest of the consolidated points.
	CFMin
	// CFMax keeps the largest of the consolidated points.
	CFMax
	// CFLast keeps the most recent of the consolidated points.
	CFLast
)

// String returns the tool's name for the consolidation function.
func (cf ConsolidationFunc) String() string {
	switch cf {
	case CFAverage:
		return "AVERAGE"
	case CFMin:
		return "MIN"
	case CFMax:
		return "MAX"
	case CFLast:
		return "LAST"
	default:
		return "UNKNOWN"
	}
}

// parseConsolidationFunc resolves a case-insensitive CF name from a schema
// file.
func parseConsolidationFunc(s string) (ConsolidationFunc, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVERAGE":
		return CFAverage, true
	case "MIN":
		return CFMin, true
	case "MAX":
		return CFMax, true
	case "LAST":
		return CFLast, true
	}
	return 0, false
}

// Archive declares one round-robin archive of a schema: Rows consolidated
// values, each covering Steps primary points, aggregated with CF. Xff is
// the fraction of an interval that may be unknown before the consolidated
// value itself becomes unknown.
type Archive struct {
	name  string
	index int

	CF    ConsolidationFunc
	Xff   float64
	Steps int
	Rows  int
}

// NewArchive declares an archive. The index is assigned by CompileSchema.
func NewArchive(cf ConsolidationFunc, xff float64, steps, rows int) Archive {
	return Archive{
		index: -1,
		CF:    cf,
		Xff:   xff,
		Steps: steps,
		Rows:  rows,
	}
}

// Name returns the declared archive name. It is empty until the archive is
// compiled into a Schema.
func (a Archive) Name() string {
	return a.name
}

// Index returns the archive's position in the schema's sorted archive
// list. It is the handle rrdtool expects for archive-addressed operations
// and is -1 until the archive is compiled into a Schema.
func (a Archive) Index() int {
	return a.index
}

// String renders the RRA directive exactly as passed to rrdtool create.
func (a Archive) String() string {
	return fmt.Sprintf("RRA:%s:%s:%s:%s",
		a.CF,
		formatValue(a.Xff),
		strconv.Itoa(a.Steps),
		strconv.Itoa(a.Rows),
	)
}

// at returns a copy carrying its declared name and sorted position.
func (a Archive) at(name string, index int) Archive {
	a.name = name
	a.index = index
	return a
}

// validate reports the declaration faults of a single archive.
func (a Archive) validate(declared string) []*SchemaError {
	var errs []*SchemaError
	if a.Xff < 0 || a.Xff >= 1 {
		errs = append(errs, &SchemaError{Element: declared, Message: "xff must be in [0, 1)"})
	}
	if a.Steps < 1 {
		errs = append(errs, &SchemaError{Element: declared, Message: "steps must be positive"})
	}
	if a.Rows < 1 {
		errs = append(errs, &SchemaError{Element: declared, Message: "rows must be positive"})
	}
	return errs
}
