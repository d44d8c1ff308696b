package thrush_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/drtoful/thrush"
)

// replay is an Invoker feeding canned rrdtool output, standing in for
// the real binary so the examples run anywhere.
type replay struct {
	out string
}

func (r replay) Run(ctx context.Context, command, path string, args ...string) ([]byte, error) {
	return []byte(r.out), nil
}

func (r replay) Stream(ctx context.Context, command, path string, args ...string) (thrush.LineStream, error) {
	return &replayStream{lines: strings.Split(r.out, "\n")}, nil
}

type replayStream struct {
	lines []string
	pos   int
}

func (s *replayStream) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

func (s *replayStream) Close() error { return nil }

const cannedFetch = `                          requests temperature

1300000000: 5.0000000000e+00 2.1500000000e+01
1300000300: 6.0000000000e+00 nan
`

func Example() {
	// Declare the database layout once.
	schema := thrush.NewSchemaBuilder().
		WithCounter("requests", 5*time.Minute).
		WithGauge("temperature", 10*time.Minute).
		WithArchive("raw", thrush.NewArchive(thrush.CFAverage, 0.5, 1, 600)).
		WithInvoker(replay{out: cannedFetch}).
		MustBuild()

	db, err := thrush.New("/var/lib/rrd/example.rrd", schema)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	// Create the file and feed a sample.
	if err := db.Create(ctx, thrush.CreateOptions{Step: 5 * time.Minute}); err != nil {
		panic(err)
	}
	err = db.Update(ctx, thrush.Sample{
		Time:   thrush.Epoch(1300000000),
		Values: map[string]float64{"requests": 5, "temperature": 21.5},
	})
	if err != nil {
		panic(err)
	}

	// Read it back.
	result, err := db.Fetch(ctx, thrush.CFAverage, thrush.FetchOptions{})
	if err != nil {
		panic(err)
	}
	defer result.Close()

	count := 0
	for result.Next() {
		count++
	}
	if err := result.Err(); err != nil {
		panic(err)
	}
	fmt.Printf("Fetched %d records\n", count)
	// Output: Fetched 2 records
}

func ExampleSanitizeFieldName() {
	fmt.Println(thrush.SanitizeFieldName("net.eth0.rx"))
	fmt.Println(thrush.SanitizeFieldName("a_very_long_counter_name"))
	// Output:
	// neteth0rx
	// a_very_long_counter
}

func ExampleParseValue() {
	v, _ := thrush.ParseValue("2.1500000000e+01")
	fmt.Println(v)

	// The strict form rejects the tool's unknown marker.
	_, err := thrush.ParseValue("nan")
	fmt.Println(errors.Is(err, thrush.ErrUnparsableValue))
	// Output:
	// 21.5
	// true
}

func ExampleSchemaBuilder() {
	schema := thrush.NewSchemaBuilder().
		WithCounter("octets", time.Minute).
		WithCompute("bits", "octets,8,*").
		WithArchive("raw", thrush.NewArchive(thrush.CFLast, 0, 1, 600)).
		MustBuild()

	fmt.Println(schema.SourceNames())
	fmt.Println(schema.UpdatableNames())
	// Output:
	// [bits octets]
	// [octets]
}

func ExampleCompileSchema() {
	schema, err := thrush.CompileSchema(thrush.Definition{
		DataSources: map[string]thrush.DataSource{
			"temperature": thrush.NewGauge(10 * time.Minute).WithBounds(-40, 80),
		},
		Archives: map[string]thrush.Archive{
			"daily": thrush.NewArchive(thrush.CFAverage, 0.5, 288, 365),
			"raw":   thrush.NewArchive(thrush.CFAverage, 0.5, 1, 600),
		},
	})
	if err != nil {
		panic(err)
	}

	ds, _ := schema.DataSource("temperature")
	fmt.Println(ds)

	daily, _ := schema.Archive("daily")
	fmt.Println(daily.Index(), daily)
	// Output:
	// DS:temperature:GAUGE:600:-40:80
	// 0 RRA:AVERAGE:0.5:288:365
}

func ExampleParseSchema() {
	schema, err := thrush.ParseSchema([]byte(`
data_sources:
  temperature:
    kind: gauge
    heartbeat: 10m
archives:
  raw:
    cf: average
    xff: 0.5
    steps: 1
    rows: 600
`))
	if err != nil {
		panic(err)
	}
	fmt.Println(schema.SourceNames())
	// Output: [temperature]
}

func ExampleRRD_Last() {
	schema := thrush.NewSchemaBuilder().
		WithCounter("requests", 5*time.Minute).
		WithGauge("temperature", 10*time.Minute).
		WithArchive("raw", thrush.NewArchive(thrush.CFAverage, 0.5, 1, 600)).
		WithInvoker(replay{out: " requests temperature\n\n1300000600: 7 22.5\n"}).
		MustBuild()

	db, err := thrush.New("/var/lib/rrd/example.rrd", schema)
	if err != nil {
		panic(err)
	}

	result, err := db.Last(context.Background())
	if err != nil {
		panic(err)
	}
	defer result.Close()

	if result.Next() {
		rec := result.Record()
		fmt.Printf("requests=%.0f at %d\n", rec.Values["requests"], rec.Time.Unix())
	}
	// Output: requests=7 at 1300000600
}

func ExampleExport() {
	schema := thrush.NewSchemaBuilder().
		WithCounter("requests", 5*time.Minute).
		WithGauge("temperature", 10*time.Minute).
		WithArchive("raw", thrush.NewArchive(thrush.CFAverage, 0.5, 1, 600)).
		WithInvoker(replay{out: cannedFetch}).
		MustBuild()

	db, err := thrush.New("/var/lib/rrd/example.rrd", schema)
	if err != nil {
		panic(err)
	}

	result, err := db.Fetch(context.Background(), thrush.CFAverage, thrush.FetchOptions{})
	if err != nil {
		panic(err)
	}
	defer result.Close()

	if _, err := thrush.Export(os.Stdout, result, thrush.DefaultExportConfig()); err != nil {
		panic(err)
	}
	// Output:
	// time,requests,temperature
	// 1300000000,5,21.5
	// 1300000300,6,
}
