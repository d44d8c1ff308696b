// Package thrush provides a typed schema layer over RRDtool, driving
// round-robin databases exclusively through the rrdtool command line
// binary.
//
// A schema declares data sources (measured or computed quantities) and
// round-robin archives (pre-aggregated summaries). Compiling the schema
// fixes canonical field names and archive indices; an RRD handle then
// turns the schema into the create, update, fetch, lastupdate and first
// invocations of the external tool.
//
// # Basic Usage
//
// Compile a schema and bind it to a file:
//
//	schema, err := thrush.NewSchemaBuilder().
//	    WithGauge("temperature", 10*time.Minute).
//	    WithArchive("daily", thrush.NewArchive(thrush.CFAverage, 0.5, 1, 288)).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := thrush.New("temps.rrd", schema)
//
// Create the database and feed samples:
//
//	err := db.Create(ctx, thrush.CreateOptions{Step: 5 * time.Minute})
//	err = db.Update(ctx, thrush.Sample{
//	    Values: map[string]float64{"temperature": 21.5},
//	})
//
// Retrieve consolidated history while the tool is still printing it:
//
//	result, err := db.Fetch(ctx, thrush.CFAverage, thrush.FetchOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer result.Close()
//	for result.Next() {
//	    rec := result.Record()
//	    fmt.Println(rec.Time, rec.Values["temperature"])
//	}
//
// # Features
//
// Schema layer:
//   - GAUGE, COUNTER, DERIVE, ABSOLUTE and COMPUTE data sources
//   - AVERAGE, MIN, MAX and LAST archives with stable sorted indices
//   - Field name sanitization to the tool's DS name rules
//   - Fluent builder and declarative YAML schema files
//
// Tool binding:
//   - Exact argument rendering for create, update, fetch, lastupdate
//     and first
//   - Streaming fetch results parsed while the process runs
//   - Non-zero exits surfaced as typed errors carrying stderr
//   - Context cancellation kills the child process
//   - Pluggable Invoker for tests and alternate tool builds
//
// Collection support:
//   - Multi-sample batched updates and a flushing update buffer
//   - Interval or cron scheduled sampling via Recorder
//   - CSV and JSON lines export of fetched series
//
// # Unknown Values
//
// The tool's "U" marker flows through as NaN: omitted or NaN sample
// values are fed as unknown, and unknown fetch cells come back as NaN
// unless FetchOptions.Unknown substitutes something else.
package thrush
