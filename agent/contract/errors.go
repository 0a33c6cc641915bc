package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthorization   = errors.New("not authorized")
	ErrUnresolvedTurn  = errors.New("turn could not be resolved")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
)
