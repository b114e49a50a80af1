package errors

import (
	"net/http"
	"primerid/api/models/dtos"
	"time"
)

/*
	Utility functions to facillitate returning error responses to HTTP clients
*/

// -- Simplest: 1 error with message
func CreateSimpleBadRequest(message string) dtos.GeneralErrorResponseDto {
	return createSimple(http.StatusBadRequest, "Bad Request", message)
}
func CreateSimpleUnauthorized(message string) dtos.GeneralErrorResponseDto {
	return createSimple(http.StatusUnauthorized, "Unauthorized", message)
}
func CreateSimpleNotFound(message string) dtos.GeneralErrorResponseDto {
	return createSimple(http.StatusNotFound, "Not Found", message)
}
func CreateSimpleInternalServerError(message string) dtos.GeneralErrorResponseDto {
	return createSimple(http.StatusInternalServerError, "Internal Server Error", message)
}
func CreateSimpleBadGateway(message string) dtos.GeneralErrorResponseDto {
	return createSimple(http.StatusBadGateway, "Bad Gateway", message)
}

// -- Many: one entry per validation message, the first doubles as `error`
func CreateValidationBadRequest(messages []string) dtos.GeneralErrorResponseDto {
	dto := dtos.GeneralErrorResponseDto{
		Code:      http.StatusBadRequest,
		Message:   "Bad Request",
		Timestamp: time.Now(),
		Errors:    make([]dtos.GeneralError, 0, len(messages)),
	}
	for _, m := range messages {
		dto.Errors = append(dto.Errors, dtos.GeneralError{Message: m})
	}
	if len(messages) > 0 {
		dto.Error = messages[0]
	}
	return dto
}

func createSimple(code int, status string, message string) dtos.GeneralErrorResponseDto {
	return dtos.GeneralErrorResponseDto{
		Error:     message,
		Code:      code,
		Message:   status,
		Timestamp: time.Now(),
		Errors: []dtos.GeneralError{
			{
				Message: message,
			},
		},
	}
}

// --
