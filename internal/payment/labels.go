package payment

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed labels.yaml
var defaultLabels []byte

// Labels maps tier and bundle codes to display names.
type Labels struct {
	Tiers map[string]string `yaml:"tiers"`
}

func ParseLabels(data []byte) (*Labels, error) {
	var labels Labels
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return nil, errors.Wrap(err, "parse tier labels")
	}
	if labels.Tiers == nil {
		labels.Tiers = map[string]string{}
	}
	return &labels, nil
}

// DefaultLabels returns the built-in tier table.
func DefaultLabels() *Labels {
	labels, err := ParseLabels(defaultLabels)
	if err != nil {
		panic(err)
	}
	return labels
}

// Lookup returns the display name for code, or code itself when it is unknown.
func (l *Labels) Lookup(code string) string {
	if l == nil {
		return code
	}
	if label, ok := l.Tiers[code]; ok {
		return label
	}
	return code
}
