// Package validation checks user input before it leaves the process and
// backend payloads before they are trusted.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ndvi-gateway/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterStructValidation(validateLocation, models.Location{})
	})
	return validate
}

// validateLocation keeps coordinates inside the globe.
func validateLocation(sl validator.StructLevel) {
	loc := sl.Current().Interface().(models.Location)
	if loc.Latitude.Min < -90 || loc.Latitude.Max > 90 {
		sl.ReportError(loc.Latitude, "latitude", "Latitude", "latitude_bounds", "")
	}
	if loc.Longitude.Min < -180 || loc.Longitude.Max > 180 {
		sl.ReportError(loc.Longitude, "longitude", "Longitude", "longitude_bounds", "")
	}
}

// ValidateStruct runs tag validation on s and flattens failures into one error.
func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(messages, "; "))
}

// ValidateUserID rejects ids that cannot travel in a cookie or query string
// unchanged.
func ValidateUserID(id string) error {
	if strings.TrimSpace(id) != id || id == "" {
		return errors.New("user_id must be non-empty without surrounding spaces")
	}
	if strings.ContainsAny(id, " ;,\"\\") {
		return errors.New(`user_id must not contain spaces, ';', ',', '"' or '\'`)
	}
	return nil
}
