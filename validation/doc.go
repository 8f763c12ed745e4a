// Package validation provides input validation for configuration and request
// handlers.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// used for configuration sections; programmatic validation fits multipart
// form fields where values arrive as strings.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    URL     string  `validate:"required,url"`
//	    Timeout float64 `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("audio", name).OneOf("export", target, []string{"notion", "gdocs"})
//	err := v.Validate()
package validation
