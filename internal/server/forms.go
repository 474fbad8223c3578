package server

import (
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"neothink/pkg/types"
)

type signUpForm struct {
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
	FullName        string `form:"full_name"`
}

type signInForm struct {
	Email          string `form:"email"`
	Password       string `form:"password"`
	RedirectedFrom string `form:"redirectedFrom"`
}

type resetPasswordForm struct {
	Email string `form:"email"`
}

type updatePasswordForm struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

type onboardingForm struct {
	FullName string `form:"full_name"`
	Username string `form:"username"`
	Pathway  string `form:"pathway"`
}

// decodeForm parses the request body into dst.
func decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return types.NewValidationError("form", "invalid form payload")
	}

	if err := decoder.Decode(dst, r.PostForm); err != nil {
		return types.NewValidationError("form", "invalid form payload")
	}

	return nil
}

var (
	hasUpperReg = regexp.MustCompile(`[A-Z]`)
	hasLowerReg = regexp.MustCompile(`[a-z]`)
	hasDigitReg = regexp.MustCompile(`[0-9]`)
	usernameReg = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
)

func validateEmail(errs map[string]string, email string) {
	if email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Enter a valid email address."
	}
}

func validatePassword(errs map[string]string, password, confirmPassword string) {
	if password != confirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	hasUpper := hasUpperReg.MatchString(password)
	hasLower := hasLowerReg.MatchString(password)
	hasDigit := hasDigitReg.MatchString(password)

	if len(password) < 8 || !hasUpper || !hasLower || !hasDigit {
		errs["password"] = "Password must be at least 8 characters and include uppercase, lowercase and a number."
	}
}

func validateSignUp(f *signUpForm) map[string]string {
	errs := map[string]string{}
	validateEmail(errs, f.Email)
	validatePassword(errs, f.Password, f.ConfirmPassword)
	return errs
}

func validateUsername(errs map[string]string, username string) {
	if !usernameReg.MatchString(username) {
		errs["username"] = "Username must be 3-30 characters of lowercase letters, numbers or underscores."
	}
}

func validateOnboarding(f *onboardingForm) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(f.FullName) == "" {
		errs["full_name"] = "Full name is required."
	}

	validateUsername(errs, f.Username)

	if !types.Pathway(f.Pathway).Valid() {
		errs["pathway"] = "Choose a pathway."
	}

	return errs
}

// firstError picks a stable message for redirect query strings.
func firstError(errs map[string]string) string {
	for _, field := range []string{"email", "password", "confirm_password", "full_name", "username", "pathway", "form"} {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return ""
}
