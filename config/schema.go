package config

import (
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Schema returns the JSON schema of a study config file.
func Schema() ([]byte, error) {
	out, err := json.MarshalIndent(jsonschema.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config schema")
	}
	return out, nil
}
