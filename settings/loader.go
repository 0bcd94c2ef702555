package settings

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/knadh/koanf"
	"github.com/npillmayer/mosra"
	"github.com/zclconf/go-cty/cty"
)

// FromKoanf reads settings from a koanf instance. Keys have the form
// "<section>.<key>", e.g. "criteria.CRI_1" or "equations.profit". Section
// names are case-insensitive. List values are joined by blanks.
func FromKoanf(k *koanf.Koanf) (*Settings, error) {
	sections := make(Sections)
	for path, v := range k.All() {
		dot := strings.IndexByte(path, '.')
		if dot <= 0 {
			tracer().Infof("warning: ignoring settings key %q outside of a section", path)
			continue
		}
		section := strings.ToLower(path[:dot])
		if sections[section] == nil {
			sections[section] = make(map[string]string)
		}
		sections[section][path[dot+1:]] = flatValue(v)
	}
	return Parse(sections)
}

func flatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []interface{}:
		s := make([]string, len(x))
		for i, e := range x {
			s[i] = flatValue(e)
		}
		return strings.Join(s, " ")
	case []string:
		return strings.Join(x, " ")
	}
	return fmt.Sprintf("%v", v)
}

// --- HCL -------------------------------------------------------------------

// hclDocument is the top level structure of an HCL settings document:
// one optional block per section.
type hclDocument struct {
	Problem              *hclSection `hcl:"problem,block"`
	Criteria             *hclSection `hcl:"criteria,block"`
	Objectives           *hclSection `hcl:"objectives,block"`
	ArealConstraints     *hclSection `hcl:"areal_constraints,block"`
	CriteriaConstraints  *hclSection `hcl:"criteria_constraints,block"`
	ObjectiveConstraints *hclSection `hcl:"objective_constraints,block"`
	Equations            *hclSection `hcl:"equations,block"`
	Dimensions           *hclSection `hcl:"dimensions,block"`
	Parameters           *hclSection `hcl:"parameters,block"`
	Scaling              *hclSection `hcl:"scaling,block"`
	Variables            *hclSection `hcl:"variables,block"`
	Constraints          *hclSection `hcl:"constraints,block"`
	EqnObjectives        *hclSection `hcl:"eqn_objectives,block"`
}

type hclSection struct {
	Body hcl.Body `hcl:",remain"`
}

// ParseHCL reads settings from an HCL document, e.g.
//
//	criteria {
//	  options = ["A", "B"]
//	  CRI_1   = "REVENUE rev_A rev_B"
//	}
//	equations {
//	  profit = "sum{SDU}(sum{OPTIONS}(REVENUE[SDU][OPTIONS] * X[SDU][OPTIONS]))"
//	}
//
// Attribute values may be strings, numbers or lists of them.
func ParseHCL(src []byte, filename string) (*Settings, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, mosra.SettingsError("cannot parse %s: %s", filename, diags.Error())
	}
	var doc hclDocument
	if diags = gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, mosra.SettingsError("cannot decode %s: %s", filename, diags.Error())
	}
	blocks := map[string]*hclSection{
		"problem":               doc.Problem,
		"criteria":              doc.Criteria,
		"objectives":            doc.Objectives,
		"areal_constraints":     doc.ArealConstraints,
		"criteria_constraints":  doc.CriteriaConstraints,
		"objective_constraints": doc.ObjectiveConstraints,
		"equations":             doc.Equations,
		"dimensions":            doc.Dimensions,
		"parameters":            doc.Parameters,
		"scaling":               doc.Scaling,
		"variables":             doc.Variables,
		"constraints":           doc.Constraints,
		"eqn_objectives":        doc.EqnObjectives,
	}
	sections := make(Sections)
	for name, block := range blocks {
		if block == nil {
			continue
		}
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, mosra.SettingsError("%s: section %s: %s", filename, name, diags.Error())
		}
		sections[name] = make(map[string]string, len(attrs))
		for key, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, mosra.SettingsError("%s: %s.%s: %s", filename, name, key, diags.Error())
			}
			s, err := ctyString(val)
			if err != nil {
				return nil, mosra.SettingsError("%s: %s.%s: %v", filename, name, key, err)
			}
			sections[name][key] = s
		}
	}
	return Parse(sections)
}

// ctyString flattens a cty value into the blank separated text form of
// a settings value.
func ctyString(val cty.Value) (string, error) {
	if !val.IsKnown() || val.IsNull() {
		return "", nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		return val.AsBigFloat().Text('g', -1), nil
	case ty == cty.Bool:
		if val.True() {
			return "true", nil
		}
		return "false", nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var parts []string
		for it := val.ElementIterator(); it.Next(); {
			_, e := it.Element()
			s, err := ctyString(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
