package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	postalCodeRe = regexp.MustCompile(`^\d{5}$`)
	phoneRe      = regexp.MustCompile(`^\d{10}$`)
)

// New returns a validator with the store's custom tags registered:
// postal_code (5 digits) and phone (10 digits, separators ignored).
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return ValidPostalCode(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return v
}

func ValidPostalCode(s string) bool {
	return postalCodeRe.MatchString(strings.TrimSpace(s))
}

// ValidPhone accepts 10 digits, ignoring spaces, dashes and parentheses.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(NormalizePhone(s))
}

func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)
}

// FieldErrors flattens validator errors into field -> message.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldName(fe)] = message(fe)
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "postal_code":
		return "must be 5 digits"
	case "phone":
		return "must be 10 digits"
	case "email":
		return "must be a valid email"
	case "min", "max", "gte", "gt", "lte":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
