package models

import "errors"

// Общие ошибки доменного слоя. Хранилище и сервисы оборачивают их через %w,
// обработчики сопоставляют их с HTTP-статусами.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid state")
	ErrQuotaExceeded      = errors.New("plan quota exceeded")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrGateway            = errors.New("payment gateway error")
)
