package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request is malformed and couldn't be processed.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var AliasConflictResponse = Response{
	Status:  StatusError,
	Error:   "Alias Conflict",
	Message: "The requested alias is already in use.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The provided input is invalid.",
	}

	resp.Details = getValidationErrors(err)

	return resp
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func getValidationErrors(err error) []any {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	details := make([]any, 0, len(validationErrs))

	for _, fieldErr := range validationErrs {
		detail := validationError{
			Field: fieldErr.Field(),
		}

		switch fieldErr.Tag() {
		case "required":
			detail.Message = fmt.Sprintf("The %q field is required.", fieldErr.Field())
		case "url":
			detail.Message = fmt.Sprintf("The %q field must be a valid URL.", fieldErr.Field())
		case "alphanum":
			detail.Message = fmt.Sprintf("The %q field must contain only letters and digits.", fieldErr.Field())
		case "min":
			detail.Message = fmt.Sprintf("The %q field must be at least %s characters long.", fieldErr.Field(), fieldErr.Param())
		case "max":
			detail.Message = fmt.Sprintf("The %q field must be at most %s characters long.", fieldErr.Field(), fieldErr.Param())
		default:
			detail.Message = fmt.Sprintf("The %q field is invalid.", fieldErr.Field())
		}

		details = append(details, detail)
	}

	return details
}
