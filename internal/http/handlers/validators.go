package handlers

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator.
// Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)

		registerErr = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
			return security.ValidatePassword(fl.Field().String()) == nil
		})
	})
	return registerErr
}

// jsonFieldName makes validation errors report the request's JSON key.
func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}
