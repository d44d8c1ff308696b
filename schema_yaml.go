package thrush

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaFile is the YAML-friendly schema definition:
//
//	data_sources:
//	  temperature:
//	    kind: gauge
//	    heartbeat: 10m
//	    min: -40
//	    max: 80
//	  requests:
//	    kind: counter
//	    heartbeat: 5m
//	archives:
//	  daily:
//	    cf: average
//	    xff: 0.5
//	    steps: 1
//	    rows: 288
type SchemaFile struct {
	DataSources map[string]SourceSpec  `yaml:"data_sources"`
	Archives    map[string]ArchiveSpec `yaml:"archives"`
}

// SourceSpec declares one data source in a schema file. Heartbeat takes
// a Go duration string like "10m" or bare seconds. Absent bounds stay
// unbounded. Compute sources take an expr instead of a heartbeat.
type SourceSpec struct {
	Kind      string   `yaml:"kind"`
	Heartbeat string   `yaml:"heartbeat,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Expr      string   `yaml:"expr,omitempty"`
}

// ArchiveSpec declares one archive in a schema file.
type ArchiveSpec struct {
	CF    string  `yaml:"cf"`
	Xff   float64 `yaml:"xff"`
	Steps int     `yaml:"steps"`
	Rows  int     `yaml:"rows"`
}

// ParseSchema compiles a YAML schema definition.
func ParseSchema(data []byte) (*Schema, error) {
	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	def, err := file.definition()
	if err != nil {
		return nil, err
	}
	return CompileSchema(def)
}

// LoadSchemaFile reads and compiles a YAML schema definition from disk.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// definition converts file specs into a Definition, reporting every
// conversion fault together.
func (f SchemaFile) definition() (Definition, error) {
	var errs SchemaErrors
	def := Definition{
		DataSources: make(map[string]DataSource, len(f.DataSources)),
		Archives:    make(map[string]Archive, len(f.Archives)),
	}

	for _, name := range sortedSpecNames(f.DataSources) {
		spec := f.DataSources[name]
		kind, ok := parseSourceKind(spec.Kind)
		if !ok {
			errs = append(errs, &SchemaError{Element: name, Message: fmt.Sprintf("unknown kind %q", spec.Kind)})
			continue
		}
		if kind == SourceCompute {
			def.DataSources[name] = NewCompute(spec.Expr)
			continue
		}
		heartbeat, err := parseDurationSpec(spec.Heartbeat)
		if err != nil {
			errs = append(errs, &SchemaError{Element: name, Message: fmt.Sprintf("bad heartbeat: %v", err)})
			continue
		}
		ds := newSource(kind, heartbeat)
		if spec.Min != nil || spec.Max != nil {
			min, max := math.NaN(), math.NaN()
			if spec.Min != nil {
				min = *spec.Min
			}
			if spec.Max != nil {
				max = *spec.Max
			}
			ds = ds.WithBounds(min, max)
		}
		def.DataSources[name] = ds
	}

	for _, name := range sortedSpecNames(f.Archives) {
		spec := f.Archives[name]
		cf, ok := parseConsolidationFunc(spec.CF)
		if !ok {
			errs = append(errs, &SchemaError{Element: name, Message: fmt.Sprintf("unknown consolidation function %q", spec.CF)})
			continue
		}
		def.Archives[name] = NewArchive(cf, spec.Xff, spec.Steps, spec.Rows)
	}

	if len(errs) > 0 {
		return Definition{}, errs
	}
	return def, nil
}

func sortedSpecNames[T any](specs map[string]T) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseDurationSpec accepts a Go duration string or bare seconds.
func parseDurationSpec(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing duration")
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(sec) * time.Second, nil
	}
	return time.ParseDuration(s)
}
