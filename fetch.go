package thrush

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"time"
)

// fetchLineRe matches the data rows of fetch and lastupdate output:
// epoch seconds, a colon, then at least one value token. Header lines,
// blank lines and any other tool chatter fail the match and are skipped.
var fetchLineRe = regexp.MustCompile(`^[0-9]+: .+`)

// Record is one row of fetched data: a local timestamp and the values of
// every schema field at that time, keyed by canonical field name.
type Record struct {
	Time   time.Time
	Values map[string]float64
}

// FetchResult iterates tool output as typed records while the process is
// still producing it. Usage follows the sql.Rows shape:
//
//	result, err := db.Fetch(ctx, thrush.CFAverage, thrush.FetchOptions{})
//	if err != nil {
//	    return err
//	}
//	defer result.Close()
//	for result.Next() {
//	    rec := result.Record()
//	    ...
//	}
//	if err := result.Err(); err != nil {
//	    return err
//	}
//
// The stream is single-pass and single-consumer. Records delivered before
// a mid-stream tool failure remain valid; the failure shows up in Err.
type FetchResult struct {
	stream  LineStream
	names   []string
	unknown float64

	rec  Record
	err  error
	done bool
}

func newFetchResult(stream LineStream, names []string, unknown float64) *FetchResult {
	return &FetchResult{
		stream:  stream,
		names:   names,
		unknown: unknown,
	}
}

// Next advances to the next record. It returns false when the stream is
// exhausted, failed or closed; Err tells those apart.
func (fr *FetchResult) Next() bool {
	if fr.done {
		return false
	}
	for {
		line, err := fr.stream.Next()
		if err != nil {
			fr.done = true
			if !errors.Is(err, io.EOF) {
				fr.err = err
			}
			return false
		}
		if !fetchLineRe.MatchString(line) {
			continue
		}

		stamp, rest, _ := strings.Cut(line, ":")
		t, err := parseEpoch(stamp)
		if err != nil {
			continue
		}

		fields := strings.Fields(rest)
		values := make(map[string]float64, len(fr.names))
		for i, name := range fr.names {
			if i >= len(fields) {
				break
			}
			values[name] = parseValueOr(fields[i], fr.unknown)
		}
		fr.rec = Record{Time: t, Values: values}
		return true
	}
}

// Record returns the record Next advanced to. It is the zero Record
// before the first Next call.
func (fr *FetchResult) Record() Record {
	return fr.rec
}

// Fields returns the canonical field names in column order, the key set
// of every Record's Values map.
func (fr *FetchResult) Fields() []string {
	return append([]string(nil), fr.names...)
}

// Err returns the error that stopped iteration, if any. A clean end of
// output and an explicit Close both leave it nil.
func (fr *FetchResult) Err() error {
	return fr.err
}

// Close terminates the producing process and releases the stream. It is
// idempotent and safe to defer right after a successful Fetch; closing
// mid-iteration simply stops the stream early.
func (fr *FetchResult) Close() error {
	fr.done = true
	return fr.stream.Close()
}
