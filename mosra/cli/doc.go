package cli

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'mosra.cli'
func tracer() tracing.Trace {
	return tracing.Select("mosra.cli")
}
