// Package validation binds request bodies with gin's validator and turns
// validator failures into apperr values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/eventvote/backend/internal/apperr"
)

// segment matches a value usable as a single URL path segment.
var segment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Tags reported as a missing field rather than an invalid one.
var missingTags = map[string]bool{
	"required":         true,
	"required_without": true,
	"notblank":         true,
}

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		panic("validation: gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
		return segment.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// fieldName reports fields by their form or json name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// BindJSON decodes and validates the JSON body into obj.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return Error(err)
	}
	return nil
}

// Struct validates obj against its binding tags.
func Struct(obj interface{}) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return Error(err)
	}
	return nil
}

// Error converts a bind or validation failure. Every missing field is listed at
// once; otherwise the first invalid field is reported. Anything else is malformed input.
func Error(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.MalformedField("body", err)
	}
	var missing []string
	for _, fe := range ves {
		if missingTags[fe.Tag()] {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return apperr.Missing(apperr.Validation, missing)
	}
	fe := ves[0]
	return apperr.Invalid(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "segment":
		return fe.Field() + " may only contain letters, digits, '-' and '_'"
	default:
		return "invalid " + fe.Field()
	}
}
