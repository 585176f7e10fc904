package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator"
	"github.com/pkg/errors"
)

const (
	TagStrongPassword = "strongpassword"
	TagAccountEmail   = "accountemail"

	MinPasswordLength = 8
	passwordSpecials  = "!@#$%&()"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-z]+\.+[a-z]+$`)

// ValidPassword requires MinPasswordLength characters with at least one digit,
// lower case letter, upper case letter and one of !@#$%&(), and no whitespace.
func ValidPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}
	var digit, lower, upper, special bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return false
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return digit && lower && upper && special
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// New returns a validator with the account rules registered.
func New() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation(TagStrongPassword, func(fl validator.FieldLevel) bool {
		return ValidPassword(fl.Field().String())
	}); err != nil {
		return nil, errors.Wrap(err, "register password rule")
	}
	if err := v.RegisterValidation(TagAccountEmail, func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	}); err != nil {
		return nil, errors.Wrap(err, "register email rule")
	}
	return v, nil
}
