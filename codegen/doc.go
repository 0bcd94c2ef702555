/*
Package codegen generates solver input from compiled equations.

The Generator walks the prefix form of an equation once per group of
table rows and expands loops over dimensions on the way. Its output is a
stream of prefix instructions (operations, numbers, decision variables)
delivered to a Sink:

• NLSink writes expression segments of an AMPL .nl file.

• LPSink folds the instructions into linear rows of an LP matrix.

Every equation yields one segment per distinct combination of values of
its free dimensions. Loops over OPTIONS are expanded for every land-use
option, loops over table dimensions iterate the distinct values found in
the rows of the current segment. Decision variables are mapped to dense
offsets by an Offsets table.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package codegen

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.codegen'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.codegen")
}
