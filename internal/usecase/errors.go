package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類。HTTPError.Kind に入れて errors.Is で判定できるようにする。
var (
	ErrValidation        = errors.New("validation_error")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrInvalidPromotion  = errors.New("invalid_promotion")
	ErrInvalidState      = errors.New("invalid_state")
	ErrInvalidSignature  = errors.New("invalid_signature")
	ErrGateway           = errors.New("gateway_error")
	ErrEmptyCart         = errors.New("empty_cart")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrSweepRunning      = errors.New("sweep_running")
)

var kindStatus = map[error]int{
	ErrValidation:        http.StatusUnprocessableEntity,
	ErrNotFound:          http.StatusNotFound,
	ErrInsufficientStock: http.StatusConflict,
	ErrInvalidPromotion:  http.StatusUnprocessableEntity,
	ErrInvalidState:      http.StatusConflict,
	ErrInvalidSignature:  http.StatusBadRequest,
	ErrGateway:           http.StatusBadGateway,
	ErrEmptyCart:         http.StatusUnprocessableEntity,
	ErrInvalidAmount:     http.StatusUnprocessableEntity,
	ErrSweepRunning:      http.StatusConflict,
}

type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// レスポンスの error に入れる機械向けの値
func (e *HTTPError) Code() string {
	if e.Kind != nil {
		return e.Kind.Error()
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "bad_request"
	}
	return "internal_error"
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func newKindError(kind error, message string) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{Status: status, Message: message, Kind: kind}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func validationError(msg string) error { return newKindError(ErrValidation, msg) }
func notFoundError(msg string) error   { return newKindError(ErrNotFound, msg) }
func invalidState(msg string) error    { return newKindError(ErrInvalidState, msg) }

func invalidPromotion(reason string) error {
	return newKindError(ErrInvalidPromotion, reason)
}

func insufficientStock(product string, remaining int64) error {
	return newKindError(ErrInsufficientStock, fmt.Sprintf("product %s only has %d left", product, remaining))
}

func dbError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
