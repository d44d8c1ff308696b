package thrush

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RRD is a handle to one round-robin database file interpreted through a
// compiled Schema. The handle holds no open resources; every operation
// runs the external tool against the file path. Handles are cheap and
// safe to share, with write ordering left to the caller.
type RRD struct {
	path   string
	schema *Schema
}

// New binds a schema to an RRD file path. The file is not touched until
// an operation runs; Create builds it.
func New(path string, schema *Schema) (*RRD, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if schema == nil {
		return nil, errors.New("schema is required")
	}
	return &RRD{path: path, schema: schema}, nil
}

// Path returns the RRD file path.
func (r *RRD) Path() string {
	return r.path
}

// Schema returns the compiled schema backing this handle.
func (r *RRD) Schema() *Schema {
	return r.schema
}

// Exists reports whether the RRD file is present. It stats the path
// directly; the tool is not invoked.
func (r *RRD) Exists() bool {
	info, err := os.Stat(r.path)
	return err == nil && !info.IsDir()
}

// CreateOptions controls Create. The zero value asks for a database
// starting now with a five minute step that refuses to overwrite an
// existing file.
type CreateOptions struct {
	// Start is the earliest moment samples may carry. Defaults to Now().
	Start TimeRef
	// Step is the primary sampling interval. Defaults to 5 minutes.
	Step time.Duration
	// Overwrite replaces an existing file instead of failing on it.
	Overwrite bool
}

// Create builds the RRD file from the schema: start and step first, then
// the DS directives in canonical field order, then the RRA directives in
// index order. Without Overwrite an existing file makes the tool exit
// non-zero, surfaced as a *ToolError.
func (r *RRD) Create(ctx context.Context, opts CreateOptions) error {
	if opts.Step <= 0 {
		opts.Step = 5 * time.Minute
	}
	args := []string{
		"--start", opts.Start.orDefault(Now()).String(),
		"--step", formatSeconds(opts.Step),
	}
	if !opts.Overwrite {
		args = append(args, "--no-overwrite")
	}
	args = append(args, r.schema.sourceDirectives()...)
	args = append(args, r.schema.archiveDirectives()...)

	_, err := r.schema.invoker.Run(ctx, "create", r.path, args...)
	return err
}

// Sample is one update datum: a time reference and the sampled values
// keyed by canonical field name. Fields left out of Values are fed as
// unknown, as is any NaN value.
type Sample struct {
	Time   TimeRef
	Values map[string]float64
}

// Update feeds a single sample. Its time defaults to Now().
func (r *RRD) Update(ctx context.Context, sample Sample) error {
	return r.UpdateBatch(ctx, []Sample{sample})
}

// UpdateBatch feeds any number of samples in one tool invocation. The
// update template names the fed fields in canonical order and every
// sample becomes one <time>:<value>... argument in that same order.
// Samples must be in ascending time order; the tool rejects anything at
// or before its last update. An empty batch is a no-op.
func (r *RRD) UpdateBatch(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	fields := r.schema.updatableNames
	if len(fields) == 0 {
		return errors.New("schema has no updatable sources")
	}
	for i, sample := range samples {
		if err := r.checkSampleFields(sample.Values); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}

	args := []string{"--template", r.schema.updateTemplate(), "--"}
	for _, sample := range samples {
		datum := make([]string, 0, len(fields)+1)
		datum = append(datum, sample.Time.orDefault(Now()).String())
		for _, field := range fields {
			v, ok := sample.Values[field]
			if !ok {
				datum = append(datum, "U")
				continue
			}
			datum = append(datum, formatValue(v))
		}
		args = append(args, strings.Join(datum, ":"))
	}

	_, err := r.schema.invoker.Run(ctx, "update", r.path, args...)
	return err
}

// checkSampleFields rejects value keys the template cannot carry.
func (r *RRD) checkSampleFields(values map[string]float64) error {
	var unknown, computed []string
	for name := range values {
		ds, ok := r.schema.sources[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if ds.Kind == SourceCompute {
			computed = append(computed, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownSource, strings.Join(unknown, ", "))
	}
	if len(computed) > 0 {
		sort.Strings(computed)
		return fmt.Errorf("computed sources cannot be fed: %s", strings.Join(computed, ", "))
	}
	return nil
}

// FetchOptions controls Fetch. The zero value covers the last day at the
// tool's preferred resolution with unknown cells kept as NaN.
type FetchOptions struct {
	// Start of the fetched window. Defaults to the expression "end-1day".
	Start TimeRef
	// End of the fetched window. Defaults to the expression "now".
	End TimeRef
	// Resolution selects the archive granularity. Zero lets the tool pick.
	Resolution time.Duration
	// Unknown substitutes a value for unknown cells. Nil keeps NaN.
	Unknown *float64
}

// Fetch retrieves consolidated samples for the given consolidation
// function. The tool output is consumed lazily through the returned
// FetchResult while the process runs; close it when done. A failing
// invocation that produced no data surfaces on the first Next, not here.
func (r *RRD) Fetch(ctx context.Context, cf ConsolidationFunc, opts FetchOptions) (*FetchResult, error) {
	args := []string{
		cf.String(),
		"--start", opts.Start.orDefault(TimeExpr("end-1day")).String(),
		"--end", opts.End.orDefault(TimeExpr("now")).String(),
	}
	if opts.Resolution > 0 {
		args = append(args, "--resolution", formatSeconds(opts.Resolution))
	}

	unknown := math.NaN()
	if opts.Unknown != nil {
		unknown = *opts.Unknown
	}

	stream, err := r.schema.invoker.Stream(ctx, "fetch", r.path, args...)
	if err != nil {
		return nil, err
	}
	return newFetchResult(stream, r.schema.sourceNames, unknown), nil
}

// Last retrieves the most recently fed sample as a single-record fetch
// stream, including fields the last update left unknown.
func (r *RRD) Last(ctx context.Context) (*FetchResult, error) {
	stream, err := r.schema.invoker.Stream(ctx, "lastupdate", r.path)
	if err != nil {
		return nil, err
	}
	return newFetchResult(stream, r.schema.sourceNames, math.NaN()), nil
}

// First returns the timestamp of the oldest row in the archive with the
// given index. Indices come from Archive.Index after compilation.
func (r *RRD) First(ctx context.Context, archiveIndex int) (time.Time, error) {
	if archiveIndex < 0 || archiveIndex >= len(r.schema.archiveNames) {
		return time.Time{}, fmt.Errorf("%w: index %d", ErrUnknownArchive, archiveIndex)
	}
	out, err := r.schema.invoker.Run(ctx, "first", r.path, "--rraindex", strconv.Itoa(archiveIndex))
	if err != nil {
		return time.Time{}, err
	}
	line := string(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return parseEpoch(line)
}
