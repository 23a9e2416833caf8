package validation

import (
	"testing"

	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func TestValidateJoin(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateJoin(JoinRequest{Name: "alice"}))

	err := ValidateJoin(JoinRequest{})
	var validationErr *errors.ValidationError
	req.ErrorAs(err, &validationErr)
	req.Equal([]string{"name is required"}, validationErr.Violations)
}

func TestValidateMessage(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateMessage(MessageRequest{
		From: "alice",
		To:   "bob",
		Text: "hi",
		Type: "private_message",
	}))
}

// Every violated field must be reported in a single pass, not fail-fast.
func TestValidateMessage_CollectsAllViolations(t *testing.T) {
	req := require.New(t)

	err := ValidateMessage(MessageRequest{From: "alice"})
	var validationErr *errors.ValidationError
	req.ErrorAs(err, &validationErr)
	req.Len(validationErr.Violations, 3)
	req.Contains(validationErr.Violations, "to is required")
	req.Contains(validationErr.Violations, "text is required")
	req.Contains(validationErr.Violations, "type is required")
}

func TestValidateMessage_RejectsStatusType(t *testing.T) {
	req := require.New(t)

	err := ValidateMessage(MessageRequest{
		From: "alice",
		To:   "Todos",
		Text: "hi",
		Type: "status",
	})
	var validationErr *errors.ValidationError
	req.ErrorAs(err, &validationErr)
	req.Equal([]string{"type must be one of [message private_message]"}, validationErr.Violations)
}
