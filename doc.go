/*
Package mosra is the root of a compiler for land-use allocation problems.

Users describe an allocation problem as a small algebraic model: equations
over parameters and decision variables, indexed by named dimensions, with
nested loops like

    sum{SDU}(sum{OPTIONS}(REVENUE[SDU][OPTIONS] * X[SDU][OPTIONS]))

The model is compiled against a table of spatial decision units (SDUs) and
turned into either a sparse LP matrix or an AMPL-style .nl file.

Sub-packages:

    lang       operator, function and loop keyword tables
    equation   tokenizer, parser, reverser and prefix compiler
    table      attribute table access (SQLite)
    dimension  dimension catalog and iteration lengths
    eqindex    cross-reference of equations to table columns
    codegen    code generation for LP rows and NL segments
    lp         sparse LP matrix
    nl         .nl file writer
    settings   problem settings
    problem    build orchestration (MakeLp, MakeNL)
    mosra/cli  command line interface of the mosra command

The root package holds the value type for table cells, the error taxonomy
shared by all sub-packages and the global configuration.

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package mosra
