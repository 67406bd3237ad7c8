package reportservice

import (
	"errors"
	"reflect"
	"strings"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/go-playground/validator/v10"
)

type inputValidator struct {
	validate *validator.Validate
}

func newValidator() *inputValidator {
	res := validator.New()
	res.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &inputValidator{validate: res}
}

// Validate implements echo.Validator
func (v *inputValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	res := api.NewError(api.KindValidation, "wrong input")
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, ve := range ves {
			res.With(ve.Field(), ve.Tag())
		}
	}
	return res
}
