package auth

import (
	"net/mail"
	"strings"

	"github.com/artpar/artsy/internal/core"
)

// Field names used in validation and business errors.
const (
	FieldFullName = "fullname"
	FieldEmail    = "email"
	FieldPassword = "password"
)

func validateLogin(email, password string) error {
	var errs core.ValidationErrors
	checkEmail(&errs, email)
	checkRequired(&errs, FieldPassword, password, "Password cannot be empty")
	return result(errs)
}

func validateRegister(fullName, email, password string) error {
	var errs core.ValidationErrors
	checkRequired(&errs, FieldFullName, fullName, "Full name cannot be empty")
	checkEmail(&errs, email)
	checkRequired(&errs, FieldPassword, password, "Password cannot be empty")
	return result(errs)
}

func checkRequired(errs *core.ValidationErrors, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, message)
	}
}

func checkEmail(errs *core.ValidationErrors, email string) {
	if strings.TrimSpace(email) == "" {
		errs.Add(FieldEmail, "Email cannot be empty")
		return
	}
	if !plausibleEmail(email) {
		errs.Add(FieldEmail, "Enter a valid email address")
	}
}

// plausibleEmail accepts a bare local@domain address whose domain has at
// least two non-empty labels.
func plausibleEmail(value string) bool {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}

	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	for part := range strings.SplitSeq(domain, ".") {
		if part == "" {
			return false
		}
	}
	return true
}

func result(errs core.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
