package api

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxUsernameLength         = 150
	maxNameLength             = 30
	maxPhoneLength            = 15
	maxConversationNameLength = 255
	minPasswordLength         = 8
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	if _, ok := v[field]; ok {
		return
	}
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

type profileFields struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

func validateProfile(p profileFields) ValidationErrors {
	errs := make(ValidationErrors)

	switch {
	case strings.TrimSpace(p.Username) == "":
		errs.Add("username", "username is required")
	case utf8.RuneCountInString(p.Username) > maxUsernameLength:
		errs.Add("username", "username is too long")
	case !usernameRegex.MatchString(p.Username):
		errs.Add("username", "username may contain only letters, numbers and @/./+/-/_")
	}

	validateEmail(p.Email, errs)

	if utf8.RuneCountInString(p.FirstName) > maxNameLength {
		errs.Add("first_name", "first name is too long")
	}
	if utf8.RuneCountInString(p.LastName) > maxNameLength {
		errs.Add("last_name", "last name is too long")
	}
	if utf8.RuneCountInString(p.PhoneNumber) > maxPhoneLength {
		errs.Add("phone_number", "phone number is too long")
	}

	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	if strings.TrimSpace(email) == "" {
		errs.Add("email", "email is required")
		return
	}

	// reject display-name forms such as "Alice <alice@example.com>"
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.Add("email", "invalid email address")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if password == "" {
		errs.Add("password", "password is required")
	} else if utf8.RuneCountInString(password) < minPasswordLength {
		errs.Add("password", "password must be at least 8 characters")
	}
}
