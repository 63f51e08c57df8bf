package account

import (
	"errors"
	"fmt"
	"strings"
)

// Field is a flat draft key.
type Field string

const (
	FieldEmail            Field = "email"
	FieldFirstName        Field = "firstname"
	FieldLastName         Field = "lastname"
	FieldPassword         Field = "password"
	FieldConfirmPassword  Field = "confirmpassword"
	FieldAddressFirstName Field = "addressfirstname"
	FieldAddressLastName  Field = "addresslastname"
	FieldAddressTelephone Field = "addresstelephone"
	FieldAddressCountry   Field = "addresscountry"
	FieldAddressCity      Field = "addresscity"
	FieldAddressStreet    Field = "addressstreet"
	FieldAddressPostcode  Field = "addresspostcode"
)

// ErrUnknownField is returned for identifiers that do not map to a draft key.
var ErrUnknownField = errors.New("unknown field")

var draftFields = []Field{
	FieldEmail,
	FieldFirstName,
	FieldLastName,
	FieldPassword,
	FieldConfirmPassword,
	FieldAddressFirstName,
	FieldAddressLastName,
	FieldAddressTelephone,
	FieldAddressCountry,
	FieldAddressCity,
	FieldAddressStreet,
	FieldAddressPostcode,
}

// Fields returns every draft key in form order.
func Fields() []Field {
	return append([]Field(nil), draftFields...)
}

// ParseField normalises an input identifier such as "address-first-name" to its draft key.
func ParseField(id string) (Field, error) {
	key := Field(strings.ReplaceAll(id, "-", ""))
	if !key.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	return key, nil
}

// Known reports whether f is a draft key.
func (f Field) Known() bool {
	for _, known := range draftFields {
		if f == known {
			return true
		}
	}
	return false
}

// Secret reports whether the field holds a password.
func (f Field) Secret() bool {
	return f == FieldPassword || f == FieldConfirmPassword
}
