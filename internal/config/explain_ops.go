package config

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed explain_ops.yaml
var explainOpsYAML []byte

// OperationShape names the contract shape an explain row's claimed
// operation implies its callee should satisfy (spec.md §4.5).
type OperationShape struct {
	Verb  string `yaml:"verb"`
	Shape string `yaml:"shape"`
}

// ExplainConfig is the CNL operation/connector table consulted by the
// contract verifier, augmentable by a project manifest's [explain] keys
// (spec.md §6.2).
type ExplainConfig struct {
	Operations []OperationShape `yaml:"operations"`
	Connectors []string         `yaml:"connectors"`
}

// LoadExplainConfig parses the embedded baseline CNL table.
func LoadExplainConfig() (*ExplainConfig, error) {
	var cfg ExplainConfig
	if err := yaml.Unmarshal(explainOpsYAML, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Merge returns a copy of cfg with extraOps/extraConnectors appended,
// modeling [explain].operations / [explain].connectors from the project
// manifest (spec.md §6.2). On a verb collision the earlier entry wins:
// ShapeFor returns the first match, so a baseline shape is kept.
func (cfg *ExplainConfig) Merge(extraOps []string, extraConnectors []string) *ExplainConfig {
	out := &ExplainConfig{
		Operations: append([]OperationShape(nil), cfg.Operations...),
		Connectors: append([]string(nil), cfg.Connectors...),
	}
	for _, v := range extraOps {
		out.Operations = append(out.Operations, OperationShape{Verb: v, Shape: "none"})
	}
	out.Connectors = append(out.Connectors, extraConnectors...)
	return out
}

// ShapeFor returns the declared shape for a verb, and whether it is known.
func (cfg *ExplainConfig) ShapeFor(verb string) (string, bool) {
	for _, op := range cfg.Operations {
		if op.Verb == verb {
			return op.Shape, true
		}
	}
	return "", false
}

// IsConnector reports whether word is a recognized connector.
func (cfg *ExplainConfig) IsConnector(word string) bool {
	for _, c := range cfg.Connectors {
		if c == word {
			return true
		}
	}
	return false
}
