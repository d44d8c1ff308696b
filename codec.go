package thrush

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unknown is the sample value that renders as the tool's "U" marker. Any
// NaN renders the same way; this constant just makes intent explicit.
var Unknown = math.NaN()

// timeRefKind discriminates the TimeRef representations.
type timeRefKind int

const (
	timeRefZero timeRefKind = iota
	timeRefTime
	timeRefEpoch
	timeRefExpr
)

// TimeRef is a point in time as rrdtool understands it: a concrete wall
// clock instant, a raw epoch second count, or an at-style expression such
// as "now-1day" passed through verbatim. The zero TimeRef means "use the
// operation's default".
type TimeRef struct {
	kind  timeRefKind
	t     time.Time
	epoch int64
	expr  string
}

// At references a concrete instant, rendered as epoch seconds.
func At(t time.Time) TimeRef {
	return TimeRef{kind: timeRefTime, t: t}
}

// Epoch references a raw epoch second count.
func Epoch(sec int64) TimeRef {
	return TimeRef{kind: timeRefEpoch, epoch: sec}
}

// TimeExpr references an at-style time expression, rendered verbatim.
// The expression grammar belongs to rrdtool; it is not validated here.
func TimeExpr(expr string) TimeRef {
	return TimeRef{kind: timeRefExpr, expr: expr}
}

// Now references the moment of invocation, rendered as the tool's "N"
// shorthand so the tool's own clock decides the instant.
func Now() TimeRef {
	return TimeRef{kind: timeRefExpr, expr: "N"}
}

// IsZero reports whether tr carries no reference at all.
func (tr TimeRef) IsZero() bool {
	return tr.kind == timeRefZero
}

// String renders the reference as a tool argument. The zero TimeRef
// renders empty; operations substitute their default before rendering.
func (tr TimeRef) String() string {
	switch tr.kind {
	case timeRefTime:
		return strconv.FormatInt(tr.t.Unix(), 10)
	case timeRefEpoch:
		return strconv.FormatInt(tr.epoch, 10)
	case timeRefExpr:
		return tr.expr
	}
	return ""
}

// orDefault substitutes def for a zero reference.
func (tr TimeRef) orDefault(def TimeRef) TimeRef {
	if tr.IsZero() {
		return def
	}
	return tr
}

// parseEpoch converts an epoch-seconds token from tool output into a local
// time. Conversion happens per timestamp via the runtime's zone database,
// so DST transitions inside a fetched range resolve correctly.
func parseEpoch(text string) (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return time.Time{}, newParseError(text, err)
	}
	return time.Unix(sec, 0), nil
}

// formatValue renders a sample value as a tool argument. NaN renders as
// the tool's "U" unknown marker.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "U"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatSeconds renders a duration as the whole-second count the tool
// expects for steps, heartbeats and resolutions.
func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

// ParseValue converts a tool output token into a float64. Non-numeric
// input and not-a-number results both return a ParseError: the strict
// form has no unknown value to substitute. The fetch path substitutes
// via parseValueOr instead.
func ParseValue(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, newParseError(text, err)
	}
	if math.IsNaN(v) {
		return 0, newParseError(text, errors.New("not a number"))
	}
	return v, nil
}

// parseValueOr converts a tool output token, substituting unknown for
// anything that does not parse or parses to NaN. This is the fetch-path
// behavior: the stream never fails on an odd value token.
func parseValueOr(text string, unknown float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) {
		return unknown
	}
	return v
}
