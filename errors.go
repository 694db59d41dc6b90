package auth

import (
	"database/sql"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

const (
	TextCodeDuplicateIdentity   = "DUPLICATE_IDENTITY"
	TextCodeInvalidOrganization = "INVALID_ORGANIZATION"
	TextCodeTokenInvalid        = "TOKEN_INVALID"
	TextCodeInvalidRole         = "INVALID_ROLE"
	TextCodeInvalidMode         = "INVALID_MODE"
	TextCodeMissingSigningKey   = "MISSING_SIGNING_KEY"
	TextCodeForbidden           = "FORBIDDEN"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeValidation          = "VALIDATION_FAILED"
	TextCodeOrganizationChange  = "ORGANIZATION_CHANGE"
)

// ErrDuplicateIdentity is returned when an email is already registered
var ErrDuplicateIdentity = errors.New("email is already registered", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeDuplicateIdentity)

// ErrInvalidOrganization is returned when a join code does not resolve
var ErrInvalidOrganization = errors.New("organization code is not valid", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidOrganization)

// ErrInvalidCredentials covers both unknown email and wrong password
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrTokenInvalid is returned when a token signature or shape is wrong
var ErrTokenInvalid = errors.New("invalid session token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrTokenExpired is returned when the token expiry has passed
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrOrganizationChange is returned when an upsert would move an existing
// user into another organization
var ErrOrganizationChange = errors.New("user belongs to another organization", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeOrganizationChange)

// ErrRecordNotFound store lookups that found nothing
var ErrRecordNotFound = errors.New("record not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMissingSigningKey the token service has no secret to sign with
var ErrMissingSigningKey = errors.New("signing key is required", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSigningKey)

// ErrNoEmptyString empty passwords are never hashed
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword password does not match the stored hash
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRole role is not one of the known roles
var ErrInvalidRole = errors.New("role is not valid", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidRole)

// ErrInvalidMode mode is neither RETAIL nor HOSPITAL
var ErrInvalidMode = errors.New("mode is not valid", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidMode)

// ErrForbidden the authenticated role may not perform the request
var ErrForbidden = errors.New("access denied", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsTokenInvalidError will check for tokens that failed verification
func IsTokenInvalidError(err error) bool {
	return errors.Is(err, ErrTokenInvalid)
}

// isNotFound matches our sentinel and store level not found errors
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, sql.ErrNoRows) ||
		repository.IsRecordNotFound(err)
}

// isDuplicate matches unique constraint violations
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateIdentity) || repository.IsDuplicatedKey(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// textCode returns the text code of a rich error, or empty
func textCode(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// validationError wraps ozzo field errors in a validation error whose
// metadata holds a field to message map under "fields".
func validationError(err error, message string) *errors.Error {
	fields := map[string]string{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	}

	return errors.New(message, errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithTextCode(TextCodeValidation).
		WithMetadata(map[string]any{"fields": fields})
}

// validationFields returns the field messages attached by validationError
func validationFields(err error) map[string]string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}
