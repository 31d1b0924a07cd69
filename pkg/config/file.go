package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"factorydash.xyz/alert-engine/pkg/alerting"
	"factorydash.xyz/alert-engine/pkg/models"
)

// File is the declarative part of the configuration: rules, channels and
// recipient preferences. JSON files parse too, JSON being a subset of YAML.
type File struct {
	Rules       []models.RuleSpec             `yaml:"rules"`
	Channels    []models.Channel              `yaml:"channels"`
	Preferences []models.RecipientPreferences `yaml:"preferences"`
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a rules file. Unknown keys are an error so that a typo in a
// field name does not silently drop a setting.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: decode rules file: %w", err)
	}
	return &f, nil
}

// Apply installs channels and preferences, then loads the rules. Channels go
// first so rules never reference a channel that is not yet registered.
func (f *File) Apply(ctx context.Context, engine *alerting.AlertEngine) (alerting.LoadReport, error) {
	var errs error
	for _, c := range f.Channels {
		if err := engine.Channels.Put(ctx, c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("channel %s: %w", c.ID, err))
		}
	}
	for _, p := range f.Preferences {
		if p.Frequency == "" {
			p.Frequency = models.FrequencyImmediate
		}
		if err := engine.Prefs.Put(ctx, p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("preferences %s: %w", p.RecipientID, err))
		}
	}
	report := engine.Rule.LoadRules(ctx, f.Rules)
	return report, multierr.Append(errs, report.Err())
}
