package article

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldValidator checks payload structs against their validate tags and
// reports failures under the JSON field names.
type fieldValidator struct {
	v *validator.Validate
}

func newFieldValidator() *fieldValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &fieldValidator{v: v}
}

// check returns nil or a validation *Error naming the first failing field.
func (fv *fieldValidator) check(payload interface{}) error {
	err := fv.v.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Kind: KindValidation, Message: err.Error()}
	}

	out := &Error{Kind: KindValidation, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		reason := describe(fe)
		if out.Field == "" {
			out.Field = fe.Field()
			out.Message = reason
		}
		if _, seen := out.Fields[fe.Field()]; !seen {
			out.Fields[fe.Field()] = reason
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	text := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if text {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
