package thrush

import "time"

// SchemaBuilder provides a fluent API for constructing a compiled
// [Schema] without assembling a [Definition] by hand.
//
//	schema, err := thrush.NewSchemaBuilder().
//	    WithGauge("temperature", 10*time.Minute).
//	    WithCounter("requests", 5*time.Minute).
//	    WithArchive("daily", thrush.NewArchive(thrush.CFAverage, 0.5, 1, 288)).
//	    Build()
type SchemaBuilder struct {
	def Definition
}

// NewSchemaBuilder creates an empty builder.
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{
		def: Definition{
			DataSources: make(map[string]DataSource),
			Archives:    make(map[string]Archive),
		},
	}
}

// WithSource declares a data source under the given name.
func (b *SchemaBuilder) WithSource(name string, ds DataSource) *SchemaBuilder {
	b.def.DataSources[name] = ds
	return b
}

// WithGauge declares an unbounded GAUGE source.
func (b *SchemaBuilder) WithGauge(name string, heartbeat time.Duration) *SchemaBuilder {
	return b.WithSource(name, NewGauge(heartbeat))
}

// WithCounter declares an unbounded COUNTER source.
func (b *SchemaBuilder) WithCounter(name string, heartbeat time.Duration) *SchemaBuilder {
	return b.WithSource(name, NewCounter(heartbeat))
}

// WithCompute declares a COMPUTE source fed by an RPN expression.
func (b *SchemaBuilder) WithCompute(name string, expr string) *SchemaBuilder {
	return b.WithSource(name, NewCompute(expr))
}

// WithArchive declares an archive under the given name.
func (b *SchemaBuilder) WithArchive(name string, a Archive) *SchemaBuilder {
	b.def.Archives[name] = a
	return b
}

// WithInvoker sets a custom external tool invoker, typically a fake for
// tests.
func (b *SchemaBuilder) WithInvoker(inv Invoker) *SchemaBuilder {
	b.def.Invoker = inv
	return b
}

// Build compiles the collected definition. Returns SchemaErrors if the
// definition is invalid.
func (b *SchemaBuilder) Build() (*Schema, error) {
	return CompileSchema(b.def)
}

// MustBuild is like [SchemaBuilder.Build] but panics on invalid
// definitions.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic("thrush: invalid schema: " + err.Error())
	}
	return s
}
