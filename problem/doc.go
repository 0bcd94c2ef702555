/*
Package problem builds allocation problems for solvers.

A Builder takes problem settings and an attribute table and produces
either an LP matrix (MakeLp) or an AMPL .nl file (MakeNL). Both go the
same way: the classic land-use model of the settings (objectives over
criteria, areal, criteria and objective constraints, and the implicit
constraints tying areal decision variables to the area of a spatial unit)
is expressed as equations over built-in parameters. These equations join
the equations of the settings, and all of them are compiled and expanded
by the same generator.

Built-in names:

	X[SDU][OPTIONS]   area allocated to an option (configurable, problem.arealvar)
	b[SDU]            binary coverage of a spatial unit (problem.binaryvar)
	AREA              area of a spatial unit
	__cri_<name>      per-option fields of a criterion

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package problem

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.problem'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.problem")
}
