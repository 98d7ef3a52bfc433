package config

import (
	"fmt"
	"time"

	"github.com/jpalmerr/aquaboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The result is ready to pass to [aquaboard.New]; callers may append their
// own options (logger, callbacks) after it.
func BuildOptions(cfg *Config) ([]aquaboard.Option, error) {
	opts := []aquaboard.Option{
		aquaboard.WithConnection(cfg.Connection()),
		aquaboard.WithPort(cfg.Port),
		aquaboard.WithPollingInterval(cfg.PollInterval.Duration()),
		aquaboard.WithLookback(cfg.Lookback.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, aquaboard.WithTitle(cfg.Title))
	}

	if cfg.FetchTimeout != 0 {
		opts = append(opts, aquaboard.WithFetchTimeout(cfg.FetchTimeout.Duration()))
	}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
		opts = append(opts, aquaboard.WithLocation(loc))
	}

	switch {
	case cfg.Retain.Count > 0:
		opts = append(opts, aquaboard.WithRetainCount(cfg.Retain.Count))
	case cfg.Retain.Age > 0:
		opts = append(opts, aquaboard.WithRetainAge(cfg.Retain.Age.Duration()))
	}

	if len(cfg.Fields) > 0 {
		fields, err := BuildFields(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aquaboard.WithFields(fields...))
	}

	return opts, nil
}

// BuildFields converts the configured fields into SDK Field objects, in
// order.
func BuildFields(cfg *Config) ([]aquaboard.Field, error) {
	fields := make([]aquaboard.Field, 0, len(cfg.Fields))
	for i, fc := range cfg.Fields {
		f, err := buildField(fc)
		if err != nil {
			return nil, fmt.Errorf("fields[%d] (%s): %w", i, fc.Name, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// buildField converts a single FieldConfig to an SDK Field.
func buildField(fc FieldConfig) (aquaboard.Field, error) {
	var opts []aquaboard.FieldOption

	if fc.Label != "" {
		opts = append(opts, aquaboard.WithLabel(fc.Label))
	}

	if fc.Unit != "" {
		opts = append(opts, aquaboard.WithUnit(fc.Unit))
	}

	if fc.Color != "" {
		opts = append(opts, aquaboard.WithColor(fc.Color))
	}

	if len(fc.Range) == 2 {
		opts = append(opts, aquaboard.WithRange(fc.Range[0], fc.Range[1]))
	}

	return aquaboard.NewField(fc.Name, opts...)
}
