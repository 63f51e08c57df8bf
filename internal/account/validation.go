package account

import (
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var (
	lettersOnlyPattern     = regexp.MustCompile(`^[a-zA-Z]*$`)
	emailPattern           = regexp.MustCompile(`(?i)^([\w.%+-]+)@([\w-]+\.)+([\w]{2,})$`)
	passwordCharsetPattern = regexp.MustCompile(`^[a-zA-Z\d]{8,}$`)
	lowerPattern           = regexp.MustCompile(`[a-z]`)
	upperPattern           = regexp.MustCompile(`[A-Z]`)
	digitPattern           = regexp.MustCompile(`\d`)
	intlPhonePattern       = regexp.MustCompile(`^\+(?:[0-9-] ?){6,14}[0-9]$`)
	leadingAlnumPattern    = regexp.MustCompile(`^[a-zA-Z0-9]`)
	leadingAlnumSpPattern  = regexp.MustCompile(`^[a-zA-Z0-9 ]`)
)

const (
	tagPersonName      = "person_name"
	tagCustomerEmail   = "customer_email"
	tagStrongPassword  = "strong_password"
	tagLeadingAlnum    = "leading_alnum"
	tagLeadingAlnumSp  = "leading_alnum_space"
	tagIntlPhone       = "intl_phone"
	confirmPasswordTag = "eqcsfield," + tagLeadingAlnum
)

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()

	rules := map[string]func(string) bool{
		tagPersonName: func(s string) bool {
			return len(s) >= 2 && lettersOnlyPattern.MatchString(s)
		},
		tagCustomerEmail: emailPattern.MatchString,
		tagStrongPassword: func(s string) bool {
			return passwordCharsetPattern.MatchString(s) &&
				lowerPattern.MatchString(s) &&
				upperPattern.MatchString(s) &&
				digitPattern.MatchString(s)
		},
		tagLeadingAlnum:   leadingAlnumPattern.MatchString,
		tagLeadingAlnumSp: leadingAlnumSpPattern.MatchString,
		tagIntlPhone:      intlPhonePattern.MatchString,
	}

	for tag, rule := range rules {
		rule := rule
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}

	return v
}

// RuleTag returns the validator tag applied to f.
func RuleTag(f Field) string {
	name := string(f)
	switch {
	case strings.Contains(name, "name"):
		return tagPersonName
	case f == FieldEmail:
		return tagCustomerEmail
	case f == FieldPassword:
		return tagStrongPassword
	case f == FieldConfirmPassword:
		return confirmPasswordTag
	case strings.Contains(name, "telephone"):
		return "required," + tagIntlPhone
	default:
		return "required," + tagLeadingAlnumSp
	}
}

// ValidateField reports whether value is acceptable for f. The draft supplies
// the password that confirmpassword is compared against. It has no side effects.
func ValidateField(f Field, value string, draft Draft) bool {
	tag := RuleTag(f)

	var err error
	if f == FieldConfirmPassword {
		err = fieldValidator.VarWithValue(value, draft.Get(FieldPassword), tag)
	} else {
		err = fieldValidator.Var(value, tag)
	}

	return err == nil
}
