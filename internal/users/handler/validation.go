package handler

import (
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"chantier_portal_backend/platform/validator"
)

// passwordPolicy is the message returned when a new password fails the
// complexity rule below.
const passwordPolicy = "password must be at least 8 characters and include an uppercase letter, a lowercase letter, a digit and a special character"

func registerPasswordRule(val *validator.Validator) {
	_ = val.RegisterValidation("strongpassword", strongPassword)
}

func strongPassword(fl playground.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSpecial
}
