package errors

import "fmt"

var (
	ErrValidation   = fmt.Errorf("invalid input")
	ErrDuplicateID  = fmt.Errorf("duplicate message id")
	ErrNotFound     = fmt.Errorf("message not found")
	ErrUnauthorized = fmt.Errorf("wrong password")
	ErrForbidden    = fmt.Errorf("operation not permitted")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
