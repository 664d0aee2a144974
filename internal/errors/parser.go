package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError classifies a database error into a client-safe code and message.
// context names the resource and action, e.g. "place update".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong on our side",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    notFoundCode(context),
			Message: getNotFoundMessage(context),
		}
	}

	// PostgreSQL 23505 and the SQLite equivalent
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// 23503
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStrLower, context)
	}

	// 23502
	if strings.Contains(errStrLower, "not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "The database is unavailable. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email address is already in use"}
	case strings.Contains(errLower, "code"):
		return ErrorInfo{Code: CodeExists, Message: "Could not assign a unique code. Please try again"}
	case strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists. Please try again"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
}

func parseForeignKeyError(errLower string, context string) ErrorInfo {
	if strings.Contains(errLower, "still referenced") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "Other records still depend on this " + resourceName(context),
		}
	}
	if strings.Contains(errLower, "owner_id") {
		return ErrorInfo{Code: notFoundCode(context), Message: getNotFoundMessage(context)}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
}

// resourceName extracts the resource word from a context such as "product delete".
func resourceName(context string) string {
	contextLower := strings.ToLower(context)
	for _, name := range []string{"image", "place", "product", "user", "town"} {
		if strings.Contains(contextLower, name) {
			return name
		}
	}
	return "record"
}

func notFoundCode(context string) string {
	switch resourceName(context) {
	case "image":
		return ImageNotFound
	case "place":
		return PlaceNotFound
	case "product":
		return ProductNotFound
	case "town":
		return TownNotFound
	}
	return ResourceNotFound
}

func getNotFoundMessage(context string) string {
	switch name := resourceName(context); name {
	case "record":
		return "The requested record was not found"
	default:
		return strings.ToUpper(name[:1]) + name[1:] + " not found"
	}
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)
	name := resourceName(context)

	switch {
	case strings.Contains(contextLower, "create"):
		return "Could not create the " + name + ". Please try again later"
	case strings.Contains(contextLower, "update"):
		return "Could not update the " + name + ". Please try again later"
	case strings.Contains(contextLower, "delete"):
		return "Could not delete the " + name + ". Please try again later"
	}
	return "Something went wrong on our side. Please try again later"
}

// ParseAndRespond classifies err and writes the envelope with statusCode.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	resp := ErrorResponse{Message: info.Message, Code: info.Code}
	if statusCode >= 500 && err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode, resp)
}
