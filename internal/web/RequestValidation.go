// This file contains the actual validator implementation for incoming http requests.
//
// You can implement custom validators for each field in this file and reference them in the request structs.

package web

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mflix-go/webserver/internal/models/user"
)

var validate *validator.Validate

// Initialize the custom validator
func init() {
	validate = validator.New()
	validate.RegisterValidation("prefkeys", validatePreferenceKeys)
}

// ValidateRequest validates a request using a Fiber context and a request struct.
// It parses the request differently based on HTTP method.
func ValidateRequest(c *fiber.Ctx, req interface{}) error {
	switch c.Method() {
	case fiber.MethodGet:
		if err := c.QueryParser(req); err != nil {
			return err
		}
		if err := c.ParamsParser(req); err != nil {
			return err
		}
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		if err := c.BodyParser(req); err != nil {
			return err
		}
	}

	return validate.Struct(req)
}

// validatePreferenceKeys is a custom validator for preference maps: every key must be storable as a document field.
func validatePreferenceKeys(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	for _, key := range field.MapKeys() {
		if key.Kind() != reflect.String || !user.ValidPreferenceKey(key.String()) {
			return false
		}
	}
	return true
}
