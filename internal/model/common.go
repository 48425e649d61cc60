package model

import (
	"errors"
	"fmt"
	"net/http"

	"ByteArrayGo/pkg/bytearray"
)

// APIError 自定义错误类型，Code与HTTP状态码一致
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// 预定义错误
var (
	ErrInvalidParameter = func(msg string) error {
		return &APIError{Code: http.StatusBadRequest, Message: msg}
	}
	ErrNotFound = func(msg string) error {
		return &APIError{Code: http.StatusNotFound, Message: msg}
	}
	ErrInternalError = func(msg string) error {
		return &APIError{Code: http.StatusInternalServerError, Message: msg}
	}
)

// FromError 将任意错误归类为APIError
// bytearray的参数错误对应400，其余未归类的错误对应500
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, bytearray.ErrInvalidArgument) {
		return &APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	return &APIError{Code: http.StatusInternalServerError, Message: err.Error()}
}

// IsNotFound 是否为404错误
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
