package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Error represents a client input error (HTTP 400)
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewError builds a validation error for a field
func NewError(field, message string) error {
	return &Error{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a validation error
func IsValidationError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates a request struct against its `validate` tags and returns
// the first failure as an *Error.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Error{Field: fe.Field(), Message: messageFor(fe)}
	}
	return &Error{Message: err.Error()}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}

// NormalizePhone strips every non-digit character from a phone number
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone normalizes the phone number and checks its length
func ValidatePhone(phone string) (string, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return "", NewError("phone", "phone is required")
	}
	if len(normalized) < 9 || len(normalized) > 11 {
		return "", NewError("phone", "phone must have 9 to 11 digits")
	}
	return normalized, nil
}

// ValidateName checks that a name is not blank
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewError("name", "name is required")
	}
	return nil
}

// ValidateEmail checks an optional email address. Empty is allowed.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return NewError("email", "invalid email format")
	}
	return nil
}
