package errx

import (
	"errors"
	"net/http"
)

// HTTPErrorResponse es el cuerpo JSON que ve el cliente
type HTTPErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Status    int                    `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ToHTTPResponse arma la respuesta pública. La causa interna nunca se expone.
func (e *Error) ToHTTPResponse(requestID string) HTTPErrorResponse {
	return HTTPErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Type:      string(e.Type),
		Status:    e.HTTPStatus,
		Details:   e.Details,
		RequestID: requestID,
	}
}

// FromError convierte cualquier error en *Error; los desconocidos son 500
func FromError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	internal := New("An unexpected error occurred", TypeInternal)
	internal.Code = "INTERNAL_ERROR"
	internal.HTTPStatus = http.StatusInternalServerError
	internal.Err = err
	return internal
}
