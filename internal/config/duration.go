package config

import (
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// Duration is a time.Duration written as a Go duration string ("300ms", "2s") in YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid duration").
			WithContext("value", raw).
			WithContext("line", node.Line).
			Build()
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
