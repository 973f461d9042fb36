package registry

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// DecodeAttributes decodes attributes into a config struct using its json tags. Attributes the
// struct does not declare are an error so that typos do not silently fall back to defaults.
// Fields already set on out act as defaults.
func DecodeAttributes[T any](attrs Attributes, out *T) error {
	if len(attrs) == 0 {
		return nil
	}
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return errors.Wrap(err, "invalid attributes")
	}
	if len(md.Unused) > 0 {
		return errors.Errorf("unknown attributes: %s", strings.Join(md.Unused, ", "))
	}
	return nil
}
