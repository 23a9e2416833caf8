// Package validation enforces the join and message schemas. All fields are
// checked in one pass; every violation is reported together.
package validation

import (
	stderrors "errors"
	"fmt"
	"strings"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type JoinRequest struct {
	Name string `validate:"required"`
}

type MessageRequest struct {
	From string `validate:"required"`
	To   string `validate:"required"`
	Text string `validate:"required"`
	Type string `validate:"required,oneof=message private_message"`
}

func ValidateJoin(req JoinRequest) error {
	return collect(validate.Struct(req))
}

func ValidateMessage(req MessageRequest) error {
	return collect(validate.Struct(req))
}

// collect flattens validator violations into a single ValidationError.
// validator.Struct is not fail-fast, so every failed field is present.
func collect(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) {
		return err
	}
	violations := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		violations = append(violations, describe(fe))
	}
	return &errors.ValidationError{Violations: violations}
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
