package http

import (
	"encoding/json"
	"net/http"
)

// ResponseBuilder provides a fluent API for API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v, encoded, as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.headers["Content-Type"] = "application/json; charset=utf-8"
	b.body, b.err = json.Marshal(v)
	return b
}

// Write sends the built response. An encoding failure becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a JSON error body {"error": message}.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(map[string]string{"error": message})
}

func UnauthorizedError() *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "not authenticated")
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}
