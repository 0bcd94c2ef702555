package settings

import (
	"github.com/npillmayer/mosra"
)

// OptionsDimension is the fixed dimension iterating over land-use options.
const OptionsDimension = "OPTIONS"

// HasClassicModel is true if the settings describe a classic land-use
// allocation over criteria (as opposed to a pure equation model).
func (s *Settings) HasClassicModel() bool {
	return len(s.Objectives) > 0
}

// Validate checks the settings for consistency. columnExists reports the
// index of a table column, or -1. It may be nil, in which case columns are
// not checked.
func (s *Settings) Validate(columnExists func(string) int) error {
	column := func(what, col string) error {
		if columnExists != nil && columnExists(col) < 0 {
			return mosra.SettingsError("%s: column %q does not exist", what, col)
		}
		return nil
	}
	if len(s.Options) == 0 {
		return mosra.SettingsError("no land-use options specified")
	}
	for cri, fields := range s.Criteria {
		if len(fields) != len(s.Options) {
			return mosra.SettingsError("criterion %s has %d fields for %d options", cri, len(fields), len(s.Options))
		}
		for _, f := range fields {
			if err := column("criterion "+cri, f); err != nil {
				return err
			}
		}
	}
	for cri, fields := range s.EvalFields {
		if len(fields) != len(s.Options) {
			return mosra.SettingsError("evaluation of %s has %d fields for %d options", cri, len(fields), len(s.Options))
		}
	}
	if s.HasClassicModel() || len(s.ArealConstraints) > 0 {
		if s.AreaField == "" {
			return mosra.SettingsError("no AREA_FIELD specified")
		}
		if err := column("AREA_FIELD", s.AreaField); err != nil {
			return err
		}
	}
	for _, obj := range s.Objectives {
		if _, ok := s.Criteria[obj.Criterion]; !ok {
			return mosra.SettingsError("objective %s: unknown criterion %s", obj.Label, obj.Criterion)
		}
	}
	for _, oc := range s.ObjectiveConstraints {
		if _, ok := s.Criteria[oc.Criterion]; !ok {
			return mosra.SettingsError("objective constraint %s: unknown criterion %s", oc.Label, oc.Criterion)
		}
	}
	for _, ac := range s.ArealConstraints {
		if _, ok := s.OptionIndex(ac.Option); !ok {
			return mosra.SettingsError("areal constraint %s: unknown option %s", ac.Label, ac.Option)
		}
		if ac.Zone != "" {
			if err := column("areal constraint "+ac.Label, ac.Zone); err != nil {
				return err
			}
		}
	}
	for _, cc := range s.CriteriaConstraints {
		if cc.IsTotal() {
			if len(cc.Fields) != len(s.Options) {
				return mosra.SettingsError("criteria constraint %s needs %d fields", cc.Label, len(s.Options))
			}
		} else {
			if _, ok := s.OptionIndex(cc.Option); !ok {
				return mosra.SettingsError("criteria constraint %s: unknown option %s", cc.Label, cc.Option)
			}
			if len(cc.Fields) != 1 {
				return mosra.SettingsError("criteria constraint %s needs a single field", cc.Label)
			}
		}
		for _, f := range cc.Fields {
			if err := column("criteria constraint "+cc.Label, f); err != nil {
				return err
			}
		}
		if cc.Zone != "" {
			if err := column("criteria constraint "+cc.Label, cc.Zone); err != nil {
				return err
			}
		}
	}
	for name, col := range s.Dimensions {
		if err := column("dimension "+name, col); err != nil {
			return err
		}
	}
	for name, par := range s.Parameters {
		if !par.HasLiteral && len(par.Columns) != 1 && len(par.Columns) != len(s.Options) {
			return mosra.SettingsError("parameter %s has %d columns, expected 1 or %d",
				name, len(par.Columns), len(s.Options))
		}
		for _, col := range par.Columns {
			if err := column("parameter "+name, col); err != nil {
				return err
			}
		}
	}
	for _, v := range s.Variables {
		if len(v.Dimensions) == 0 {
			return mosra.SettingsError("variable %s has no dimensions", v.Name)
		}
		for _, d := range v.Dimensions {
			if _, ok := s.Dimensions[d]; !ok && d != OptionsDimension {
				return mosra.SettingsError("variable %s: unknown dimension %s", v.Name, d)
			}
		}
		if v.Lower > v.Upper {
			return mosra.SettingsError("variable %s: lower bound exceeds upper bound", v.Name)
		}
	}
	for _, c := range s.Constraints {
		if !s.IsEquation(c.Equation) {
			return mosra.SettingsError("constraint %s: unknown equation %s", c.Name, c.Equation)
		}
	}
	for _, o := range s.EqnObjectives {
		if !s.IsEquation(o.Equation) {
			return mosra.SettingsError("objective %s: unknown equation %s", o.Name, o.Equation)
		}
	}
	return nil
}
