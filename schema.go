package thrush

import (
	"fmt"
	"sort"
	"strings"
)

// Definition declares the layout of an RRD: its data sources and its
// round-robin archives, keyed by declared name. Declaration order never
// matters; CompileSchema sorts both collections by name so the rendered
// tool arguments are deterministic.
type Definition struct {
	DataSources map[string]DataSource
	Archives    map[string]Archive

	// Invoker overrides how the external tool is run. Nil selects the
	// default rrdtool subprocess invoker.
	Invoker Invoker
}

// Schema is a compiled, immutable RRD layout. Data sources are keyed by
// canonical field name (declared name sanitized per SanitizeFieldName),
// archives by declared name with indices assigned in sorted name order.
// A Schema is safe for concurrent use and may back any number of RRD
// handles.
type Schema struct {
	sources        map[string]DataSource
	sourceNames    []string
	updatableNames []string
	archives       map[string]Archive
	archiveNames   []string
	invoker        Invoker
}

// CompileSchema validates a definition and freezes it into a Schema. All
// faults are reported together as SchemaErrors: names that sanitize to
// nothing, names that collide after sanitization, element-level faults,
// and empty collections. A valid RRD needs at least one data source and
// one archive.
func CompileSchema(def Definition) (*Schema, error) {
	var errs SchemaErrors

	if len(def.DataSources) == 0 {
		errs = append(errs, &SchemaError{Message: "at least one data source is required"})
	}
	if len(def.Archives) == 0 {
		errs = append(errs, &SchemaError{Message: "at least one archive is required"})
	}

	declared := make([]string, 0, len(def.DataSources))
	for name := range def.DataSources {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	byCanonical := make(map[string][]string)
	for _, name := range declared {
		canonical := SanitizeFieldName(name)
		if canonical == "" {
			errs = append(errs, &SchemaError{Element: name, Message: "name sanitizes to nothing"})
			continue
		}
		byCanonical[canonical] = append(byCanonical[canonical], name)
	}

	canonicals := make([]string, 0, len(byCanonical))
	for canonical := range byCanonical {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)
	for _, canonical := range canonicals {
		if names := byCanonical[canonical]; len(names) > 1 {
			errs = append(errs, &SchemaError{
				Element: canonical,
				Message: fmt.Sprintf("declared names %s collide after sanitization", strings.Join(names, ", ")),
			})
		}
	}

	for _, name := range declared {
		errs = append(errs, def.DataSources[name].validate(name)...)
	}

	archiveNames := make([]string, 0, len(def.Archives))
	for name := range def.Archives {
		archiveNames = append(archiveNames, name)
	}
	sort.Strings(archiveNames)
	for _, name := range archiveNames {
		errs = append(errs, def.Archives[name].validate(name)...)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	s := &Schema{
		sources:     make(map[string]DataSource, len(def.DataSources)),
		sourceNames: canonicals,
		archives:    make(map[string]Archive, len(def.Archives)),
		invoker:     def.Invoker,
	}
	if s.invoker == nil {
		s.invoker = defaultInvoker()
	}

	for canonical, names := range byCanonical {
		s.sources[canonical] = def.DataSources[names[0]].named(canonical)
	}
	for _, canonical := range s.sourceNames {
		if s.sources[canonical].Kind != SourceCompute {
			s.updatableNames = append(s.updatableNames, canonical)
		}
	}

	s.archiveNames = archiveNames
	for i, name := range archiveNames {
		s.archives[name] = def.Archives[name].at(name, i)
	}

	return s, nil
}

// MustCompileSchema is CompileSchema that panics on error, for package
// level schema variables.
func MustCompileSchema(def Definition) *Schema {
	s, err := CompileSchema(def)
	if err != nil {
		panic(fmt.Sprintf("thrush: compile schema: %v", err))
	}
	return s
}

// DataSource returns the compiled source for a canonical field name.
func (s *Schema) DataSource(name string) (DataSource, bool) {
	ds, ok := s.sources[name]
	return ds, ok
}

// SourceNames returns the canonical field names in sorted order. This is
// the column order of every tool exchange: create directives, update
// templates and fetch output all follow it.
func (s *Schema) SourceNames() []string {
	return append([]string(nil), s.sourceNames...)
}

// UpdatableNames returns the sorted canonical names of the sources that
// accept fed samples, which excludes COMPUTE sources.
func (s *Schema) UpdatableNames() []string {
	return append([]string(nil), s.updatableNames...)
}

// Archive returns the compiled archive for a declared name.
func (s *Schema) Archive(name string) (Archive, bool) {
	a, ok := s.archives[name]
	return a, ok
}

// ArchiveNames returns the declared archive names in sorted order, which
// is also index order.
func (s *Schema) ArchiveNames() []string {
	return append([]string(nil), s.archiveNames...)
}

// Archives returns the compiled archives in index order.
func (s *Schema) Archives() []Archive {
	out := make([]Archive, 0, len(s.archiveNames))
	for _, name := range s.archiveNames {
		out = append(out, s.archives[name])
	}
	return out
}

// sourceDirectives renders the DS create arguments in canonical order.
func (s *Schema) sourceDirectives() []string {
	out := make([]string, 0, len(s.sourceNames))
	for _, name := range s.sourceNames {
		out = append(out, s.sources[name].String())
	}
	return out
}

// archiveDirectives renders the RRA create arguments in index order.
func (s *Schema) archiveDirectives() []string {
	out := make([]string, 0, len(s.archiveNames))
	for _, name := range s.archiveNames {
		out = append(out, s.archives[name].String())
	}
	return out
}

// updateTemplate renders the --template argument naming the fed fields.
func (s *Schema) updateTemplate() string {
	return strings.Join(s.updatableNames, ":")
}
