package config

import (
	"reflect"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// Validator is an optional interface that configuration structs may
// implement for custom validation logic. If the struct passed to
// [Loader.Load] implements Validator, its Validate method is called
// after tag-based required validation succeeds.
//
// Validate should return an error describing the first validation
// failure, or nil. Errors that are already [*iderr.Error] pass through
// unchanged; other errors are wrapped with [iderr.CodeValidation].
//
// Example:
//
//	type DirectoryConfig struct {
//	    Host string `env:"WSO2_IS_HOST" required:"true"`
//	    Port int    `env:"WSO2_IS_PORT" required:"true"`
//	}
//
//	func (c *DirectoryConfig) Validate() error {
//	    if c.Port < 1 || c.Port > 65535 {
//	        return iderr.Newf(iderr.CodeValidation,
//	            "config: port %d is out of range [1, 65535]", c.Port)
//	    }
//	    return nil
//	}
type Validator interface {
	Validate() error
}

// validate performs tag-based required validation and then invokes the
// Validator interface if the config struct implements it.
func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isPlatformErr := iderr.AsError(err); isPlatformErr {
				return err
			}
			return iderr.Wrap(err, iderr.CodeValidation,
				"config: custom validation failed")
		}
	}

	return nil
}

// validateRequired recursively checks that all fields tagged with
// `required:"true"` hold non-zero values. path tracks the dotted field
// path for error messages (e.g. "Directory.Host").
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		fieldPath := sf.Name
		if path != "" {
			fieldPath = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") != "true" {
			continue
		}

		if field.IsZero() {
			return iderr.Newf(iderr.CodeValidationRequired,
				"config: required field %q is empty", fieldPath)
		}
	}

	return nil
}
