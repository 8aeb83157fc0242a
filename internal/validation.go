package internal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("readiness", func(fl validator.FieldLevel) bool {
		_, err := models.ParseReadinessStatus(fl.Field().String())
		return err == nil
	}); err != nil {
		panic("register readiness validator: " + err.Error())
	}
	return v
}

func (s *Server) validateStruct(dst any) error {
	err := s.Validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidArgument("invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.InvalidArgument("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "readiness":
		return fmt.Sprintf("%s must be one of Ready, Disewa, Servis, Kalibrasi, Rusak, Hilang", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
