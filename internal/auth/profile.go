package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// validate is the schema validator for identity profiles.
var validate = validator.New()

// Attributes is the raw attribute bag handed over by a protocol layer:
// SAML attribute statements, OIDC claims or an LDAP entry. Values are
// read defensively; an absent attribute reads as the empty string.
type Attributes map[string][]string

// Get returns the first value of the named attribute or "".
func (a Attributes) Get(name string) string {
	if vals, ok := a[name]; ok && len(vals) > 0 {
		return vals[0]
	}

	return ""
}

// Set stores a single-valued attribute.
func (a Attributes) Set(name, value string) {
	a[name] = []string{value}
}

// EmployeeProfile is the normalized identity of an employee assertion.
// The external id is the trust anchor: it must be present. Names default
// to the empty string and email stays optional contact data.
type EmployeeProfile struct {
	ExternalID string `validate:"required"`
	Email      string
	FirstName  string
	LastName   string
}

// CitizenProfile is the normalized identity of a citizen assertion.
type CitizenProfile struct {
	SocialSecurityNumber string `validate:"required"`
	FirstName            string
	LastName             string
}

// External id prefixes namespace raw provider ids into backend external
// ids, so an AD account can never collide with a Keycloak account.
const (
	employeeIDPrefix   = "evaka:"
	adEmployeeIDPrefix = "ad:"
)

// NormalizeKeycloakEmployee maps the Keycloak employee SAML attribute
// profile into a validated EmployeeProfile.
func NormalizeKeycloakEmployee(attrs Attributes) (EmployeeProfile, error) {
	p := EmployeeProfile{
		Email:     attrs.Get("email"),
		FirstName: attrs.Get("firstName"),
		LastName:  attrs.Get("lastName"),
	}

	// The identifying attribute is validated raw: a present prefix with
	// an empty id must still fail.
	if id := attrs.Get("id"); id != "" {
		p.ExternalID = employeeIDPrefix + id
	}

	if err := checkProfile("employee", p); err != nil {
		return EmployeeProfile{}, err
	}

	return p, nil
}

// NormalizeADEmployee maps an Active Directory entry into a validated
// EmployeeProfile. The directory account name is the trust anchor.
func NormalizeADEmployee(attrs Attributes) (EmployeeProfile, error) {
	p := EmployeeProfile{
		Email:     attrs.Get("email"),
		FirstName: attrs.Get("firstName"),
		LastName:  attrs.Get("lastName"),
	}

	if id := attrs.Get("id"); id != "" {
		p.ExternalID = adEmployeeIDPrefix + id
	}

	if err := checkProfile("employee", p); err != nil {
		return EmployeeProfile{}, err
	}

	return p, nil
}

// NormalizeKeycloakCitizen maps the Keycloak citizen weak-auth SAML
// attribute profile into a validated CitizenProfile.
func NormalizeKeycloakCitizen(attrs Attributes) (CitizenProfile, error) {
	p := CitizenProfile{
		SocialSecurityNumber: attrs.Get("socialSecurityNumber"),
		FirstName:            attrs.Get("firstName"),
		LastName:             attrs.Get("lastName"),
	}

	if err := checkProfile("citizen", p); err != nil {
		return CitizenProfile{}, err
	}

	return p, nil
}

// NormalizeOIDCCitizen maps the claims of a verified strong-auth ID
// token into a validated CitizenProfile. The OIDC provider has already
// translated its claim names into the canonical attribute keys.
func NormalizeOIDCCitizen(attrs Attributes) (CitizenProfile, error) {
	return NormalizeKeycloakCitizen(attrs)
}

// checkProfile runs the schema validation and converts validator output
// into a ValidationError listing every failed field.
func checkProfile(profile string, data interface{}) error {
	errs := validate.Struct(data)
	if errs == nil {
		return nil
	}

	vErr := &ValidationError{Profile: profile}

	var validationErrors validator.ValidationErrors
	if errors.As(errs, &validationErrors) {
		for _, fieldErr := range validationErrors {
			vErr.Fields = append(vErr.Fields, fieldErr.Field())
		}
	} else {
		vErr.Fields = append(vErr.Fields, "unknown")
	}

	return vErr
}
