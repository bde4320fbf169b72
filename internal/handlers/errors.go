package handlers

import (
	"errors"
	"net/http"

	"minevault-backend/internal/models"
)

// statusFor maps engine error kinds onto HTTP statuses so callers can tell
// retryable failures from permanent ones.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrDuplicateID),
		errors.Is(err, models.ErrCellAlreadyRevealed),
		errors.Is(err, models.ErrAlreadyRevealed),
		errors.Is(err, models.ErrGameFinished),
		errors.Is(err, models.ErrAlreadyLost):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientPayment),
		errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
