package http

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"kbodata/internal/server/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// YYYY, YYYY-MM or YYYY-MM-DD
var matchDatePattern = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2])(-(0[1-9]|[12]\d|3[01]))?)?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("matchdate", func(fl validator.FieldLevel) bool {
		return matchDatePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validationMiddleware parses and validates the query of ingestion routes
func validationMiddleware(c *fiber.Ctx) error {
	// Ingestion routes accept GET and POST alike
	method := c.Method()
	if method != fiber.MethodGet && method != fiber.MethodPost {
		return c.Next()
	}

	// Determine request type based on path
	path := c.Path()
	var requestType any

	switch {
	case strings.HasSuffix(path, "/schedule"):
		requestType = &core.ScheduleRequest{}
	case strings.HasSuffix(path, "/save"):
		requestType = &core.SeasonRequest{}
	default:
		return c.Next() // Path parameters are validated by their handlers
	}

	if err := c.QueryParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "invalid query parameters",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: describe(err),
		})
	}

	// Store validated query for handler use
	c.Locals("validatedQuery", requestType)
	c.Locals("validated", true)

	return c.Next()
}

// validatedQuery returns the request stored by validationMiddleware
func validatedQuery[T any](c *fiber.Ctx) (T, bool) {
	var zero T
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return zero, false
	}
	req, ok := c.Locals("validatedQuery").(*T)
	if !ok || req == nil {
		return zero, false
	}
	return *req, true
}

// bindQuery parses the query string into req and validates it, writing a 400 on failure.
// Fields filled from path parameters must be validated again by the caller.
func bindQuery(c *fiber.Ctx, req any) (bool, error) {
	if err := c.QueryParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "invalid query parameters",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	if err := validate.StructPartial(req, queryFields(req)...); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: describe(err),
		})
	}
	return true, nil
}

// queryFields names the struct fields bound from the query string
func queryFields(req any) []string {
	t := reflect.TypeOf(req)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var fields []string
	for i := range t.NumField() {
		if f := t.Field(i); f.Tag.Get("query") != "" {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

// validateParams checks a request built from path parameters, writing a 400 on failure
func validateParams(c *fiber.Ctx, req any) (bool, error) {
	if err := validate.Struct(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "invalid path parameter",
			Code:    core.ErrInvalidRequest,
			Details: describe(err),
		})
	}
	return true, nil
}

// describe renders validator errors as one readable line
func describe(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var details strings.Builder
	for _, err := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch err.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", err.Field()))
		case "matchdate":
			details.WriteString(fmt.Sprintf("%s must be YYYY, YYYY-MM or YYYY-MM-DD", err.Field()))
		case "datetime":
			details.WriteString(fmt.Sprintf("%s must be YYYY-MM-DD", err.Field()))
		case "alphanum":
			details.WriteString(fmt.Sprintf("%s must be alphanumeric", err.Field()))
		case "min":
			if err.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", err.Field(), err.Param()))
			}
		case "max":
			if err.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", err.Field(), err.Param()))
			}
		case "omitempty": // Skip, a control tag that doesn't error
			continue
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", err.Field(), err.Tag()))
		}
	}
	return details.String()
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
