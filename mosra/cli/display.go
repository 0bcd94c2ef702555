package cli

import (
	"io"
	"math"

	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/npillmayer/mosra/lp"
)

var kindNames = map[lp.ColumnKind]string{lp.Real: "real", lp.Int: "int", lp.Binary: "bin"}

// renderMatrix prints the columns and rows of an LP as terminal tables.
func renderMatrix(m *lp.Matrix, w io.Writer) error {
	obj, sense := m.Objective()
	cols := pretty.NewWriter()
	cols.SetOutputMirror(w)
	cols.SetTitle("Decision variables")
	cols.AppendHeader(pretty.Row{"#", "Name", "Kind", "Lower", "Upper", "Objective"})
	for i, c := range m.Columns() {
		cols.AppendRow(pretty.Row{i, c.Name, kindNames[c.Kind], bound(c.Lower), bound(c.Upper), obj[i]})
	}
	cols.AppendFooter(pretty.Row{"", "", "", "", "", sense.String()})
	cols.Render()
	//
	rows := pretty.NewWriter()
	rows.SetOutputMirror(w)
	rows.SetTitle("Constraints")
	rows.AppendHeader(pretty.Row{"#", "Name", "Non-zeros", "Relation", "RHS"})
	for i, r := range m.Rows() {
		rows.AppendRow(pretty.Row{i, r.Name, m.NonZeros(i), r.Op.String(), r.RHS})
	}
	rows.Render()
	return nil
}

func bound(v float64) interface{} {
	if math.IsInf(v, 0) {
		if v < 0 {
			return "-inf"
		}
		return "inf"
	}
	return v
}
