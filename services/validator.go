package services

import (
	"chat-room/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type participantRequest struct {
	Name string `validate:"required"`
}

type messageRequest struct {
	To   string `validate:"required"`
	Text string `validate:"required"`
	Type string `validate:"required,oneof=message private_message"`
}

// validateStruct wraps any rule violation into ErrInvalidInput.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	return nil
}
