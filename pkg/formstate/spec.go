package formstate

import (
	"github.com/randalmurphal/formstate/pkg/formstate/config"
)

// FromSpec builds a form from a declarative definition. Rules refer to
// validators by name; register custom ones with WithRegistry.
func FromSpec(spec config.FormSpec, opts ...Option) (*Form, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cfg := Config{
		ID:            spec.ID,
		InitialValues: spec.InitialValues,
		Fields:        make([]FieldConfig, 0, len(spec.Fields)),
	}
	for _, fs := range spec.Fields {
		cfg.Fields = append(cfg.Fields, FieldConfig{
			Name:             fs.Name,
			Label:            fs.Label,
			InitialValue:     fs.InitialValue,
			DefaultValue:     fs.DefaultValue,
			Rules:            fs.ValidatorRules(),
			StopOnFirstError: fs.StopOnFirstError,
		})
	}
	return New(cfg, opts...)
}

// FromFile loads a YAML or JSON form definition and builds a form from it.
func FromFile(path string, opts ...Option) (*Form, error) {
	spec, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}
	return FromSpec(spec, opts...)
}
