/*
Package equation compiles equations of the allocation modelling language.

Equations are algebraic expressions over parameters, decision variables,
numbers, built-in functions, loops over dimensions and references to other
equations:

    sum{SDU}(sum{OPTIONS}(REVENUE[SDU][OPTIONS] * X[SDU][OPTIONS])) - COSTS

Parsing produces an AST and an Admin, an index of all elements with their
source spans. The Admin addresses elements either by their end position
or by their start position; end addressing is what Reverse needs to
rebuild an equation back to front. ToPrefix flattens the AST into the prefix
token sequence consumed by code generation, and a Compiler caches the
prefix form per equation name.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package equation

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.equation'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.equation")
}
