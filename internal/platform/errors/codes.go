// Package errors provides structured domain errors with localized messages.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidBody Code = "INVALID_BODY"
	CodeAdminOnly   Code = "ADMIN_ONLY"

	// Category errors
	CodeCategoryNotFound  Code = "CATEGORY_NOT_FOUND"
	CodeCategoryNameTaken Code = "CATEGORY_NAME_TAKEN"
	CodeCategoryNameEmpty Code = "CATEGORY_NAME_EMPTY"

	// Topic errors
	CodeTopicNotFound   Code = "TOPIC_NOT_FOUND"
	CodeTopicTitleTaken Code = "TOPIC_TITLE_TAKEN"
	CodeTopicTitleEmpty Code = "TOPIC_TITLE_EMPTY"

	// User errors
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeUserExists      Code = "USER_ALREADY_EXISTS"
	CodeUsernameEmpty   Code = "USERNAME_EMPTY"
	CodePasswordEmpty   Code = "PASSWORD_EMPTY"
	CodeInvalidPassword Code = "INVALID_PASSWORD"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidBody,
		CodeCategoryNameEmpty,
		CodeTopicTitleEmpty,
		CodeUsernameEmpty,
		CodePasswordEmpty:
		return http.StatusBadRequest

	case CodeInvalidPassword:
		return http.StatusUnauthorized

	case CodeAdminOnly:
		return http.StatusForbidden

	case CodeCategoryNotFound,
		CodeTopicNotFound,
		CodeUserNotFound:
		return http.StatusNotFound

	case CodeCategoryNameTaken,
		CodeTopicTitleTaken,
		CodeUserExists:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether the code names a missing record.
func (c Code) IsNotFound() bool {
	return c.HTTPStatus() == http.StatusNotFound
}

// IsConflict reports whether the code names a uniqueness violation.
func (c Code) IsConflict() bool {
	return c.HTTPStatus() == http.StatusConflict
}
