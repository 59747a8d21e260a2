package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError reports malformed or out-of-range input with a field-level
// message suitable for a client response.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AlreadyExistsError reports a duplicate favorite, cart item or subscription.
type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string {
	return e.Message
}

// PermissionError reports an actor attempting an operation they are not
// allowed to perform.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsAlreadyExists(err error) bool {
	var aee *AlreadyExistsError
	return errors.As(err, &aee)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// translateDuplicate converts a unique-constraint violation into a domain
// error. A concurrent add that loses a race against the index exits here
// instead of propagating a driver fault.
func translateDuplicate(err error, exists *AlreadyExistsError) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return exists
	}
	return err
}
