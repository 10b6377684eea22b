package utils

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a free-form set of attributes, as found in a JSON configuration.
type AttributeMap map[string]interface{}

// Has reports whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, ok := am[name]
	return ok
}

// TransformAttributeMapToStruct decodes attributes into target, matching keys against the
// target's json tags. Unknown keys are an error so typos in configuration are caught.
func TransformAttributeMapToStruct(attributes AttributeMap, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "creating attribute decoder")
	}
	return errors.Wrap(decoder.Decode(map[string]interface{}(attributes)), "decoding attributes")
}
