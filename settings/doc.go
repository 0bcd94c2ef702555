/*
Package settings holds the description of an allocation problem.

A problem is described in sections, following the LUMASS optimisation
settings format:

    PROBLEM                 decision variable type, layer, land-use and area fields
    CRITERIA                land-use options and per-option criterion fields
    OBJECTIVES              aggregation method and objectives over criteria
    AREAL_CONSTRAINTS       area per option, possibly restricted to a zone
    CRITERIA_CONSTRAINTS    bounds on criterion totals
    OBJECTIVE_CONSTRAINTS   bounds on objective values
    EQUATIONS               named equations of the modelling language
    DIMENSIONS              dimension name to table column
    PARAMETERS              parameter name to table column(s) or a literal
    SCALING                 parameter scaling factors
    VARIABLES               decision variables with dimensions, bounds and type
    CONSTRAINTS             equation based constraints
    EQN_OBJECTIVES          equation based objectives

Sections may be read from a koanf instance (keys "<section>.<key>") or from
an HCL document with one block per section.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package settings

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.settings'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.settings")
}
