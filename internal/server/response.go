package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/security"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

var validate = validator.New()

func dataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func ok(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusOK, data)
}

// bindAndValidate binds the body, applies defaults and validates req.
func bindAndValidate(c echo.Context, req interface{}) []FieldError {
	if err := c.Bind(req); err != nil {
		return fieldErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return fieldErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			out = append(out, FieldError{
				Code:    "ERR_" + strings.ToUpper(e.Tag()),
				Field:   e.Field(),
				Message: fieldMessage(e),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []FieldError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// errorResponse maps domain errors onto HTTP statuses.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	code := "ERR_INTERNAL"

	var verr *apperrors.ValidationError
	var berr *apperrors.BridgeError
	switch {
	case errors.As(err, &verr), apperrors.Is(err, apperrors.ErrInvalidTicker):
		status, code = http.StatusBadRequest, "ERR_BAD_REQUEST"
	case apperrors.Is(err, apperrors.ErrCacheMiss), apperrors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "ERR_NOT_FOUND"
	case apperrors.Is(err, apperrors.ErrNoPriceData), apperrors.Is(err, apperrors.ErrInsufficientData):
		status, code = http.StatusUnprocessableEntity, "ERR_NO_DATA"
	case apperrors.Is(err, apperrors.ErrBridgeNotReady), apperrors.Is(err, apperrors.ErrBridgeUnavailable):
		status, code = http.StatusServiceUnavailable, "ERR_BRIDGE"
	case errors.As(err, &berr):
		status, code = http.StatusBadGateway, "ERR_BRIDGE"
	}

	return dataResponse(c, status, []FieldError{{
		Code:    code,
		Message: security.MaskSensitive(err.Error()),
	}})
}
