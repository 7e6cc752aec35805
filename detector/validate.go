package detector

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses a JSON request body into dst and checks its validation
// tags. Every failure comes back as a KindValidation error.
func Decode(body []byte, dst any) error {
	if len(body) == 0 {
		return invalid("decode", "request body is empty", FieldError{
			Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing",
		})
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		return invalid("decode", "malformed request body", FieldError{
			Loc: []string{"body"}, Msg: err.Error(), Type: "value_error.jsondecode",
		})
	}
	return Validate(dst)
}

// Validate checks struct tags on a request record.
func Validate(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindValidation, Op: "validate", Message: "invalid request", Cause: err}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return invalid("validate", "request validation failed", fields...)
}

func describe(fe validator.FieldError) FieldError {
	out := FieldError{Loc: []string{"body", fe.Field()}}
	switch fe.Tag() {
	case "required":
		out.Msg = "field required"
		out.Type = "value_error.missing"
	case "min":
		out.Msg = fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
		out.Type = "value_error.any_str.min_length"
	case "gte":
		out.Msg = fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
		out.Type = "value_error.number.not_ge"
	default:
		out.Msg = fmt.Sprintf("failed %q check", fe.Tag())
		out.Type = "value_error." + fe.Tag()
	}
	return out
}
