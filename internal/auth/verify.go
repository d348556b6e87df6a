package auth

import (
	"context"
	"fmt"
)

// Verifier runs the provider-independent login pipeline: normalize the
// raw attribute bag into a validated profile, resolve the profile
// against the backend and build the canonical session user. The three
// stages are strategy functions so every IdP integration shares one
// pipeline instead of duplicating it.
type Verifier struct {
	// Normalize validates the raw attributes into an identity profile.
	Normalize func(attrs Attributes) (interface{}, error)
	// Resolve performs the backend login upsert for the profile.
	Resolve func(ctx context.Context, profile interface{}) (Person, error)
	// BuildUser maps the resolved person into the session user.
	BuildUser func(p Person) SessionUser
}

// Verify turns validated IdP attributes into a session user. Any stage
// error aborts the attempt; in particular a profile whose identifying
// field is missing fails before the backend is ever called.
func (v Verifier) Verify(ctx context.Context, attrs Attributes) (*SessionUser, error) {
	profile, err := v.Normalize(attrs)
	if err != nil {
		return nil, err
	}

	person, err := v.Resolve(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverFailure, err)
	}

	user := v.BuildUser(person)

	return &user, nil
}

// KeycloakEmployeeVerifier verifies Keycloak employee SAML assertions.
func KeycloakEmployeeVerifier(resolver PersonResolver) Verifier {
	return Verifier{
		Normalize: func(attrs Attributes) (interface{}, error) {
			return NormalizeKeycloakEmployee(attrs)
		},
		Resolve: func(ctx context.Context, profile interface{}) (Person, error) {
			p := profile.(EmployeeProfile)

			return resolver.EmployeeLogin(ctx, EmployeeLoginRequest{
				ExternalID: p.ExternalID,
				FirstName:  p.FirstName,
				LastName:   p.LastName,
				Email:      p.Email,
			})
		},
		BuildUser: NewEmployeeUser,
	}
}

// KeycloakCitizenVerifier verifies Keycloak citizen weak-auth SAML
// assertions. The resulting user is always CITIZEN_WEAK with the fixed
// minimal role set.
func KeycloakCitizenVerifier(resolver PersonResolver) Verifier {
	return Verifier{
		Normalize: func(attrs Attributes) (interface{}, error) {
			return NormalizeKeycloakCitizen(attrs)
		},
		Resolve: func(ctx context.Context, profile interface{}) (Person, error) {
			p := profile.(CitizenProfile)

			return resolver.CitizenLogin(ctx, CitizenLoginRequest{
				SocialSecurityNumber: p.SocialSecurityNumber,
				FirstName:            p.FirstName,
				LastName:             p.LastName,
			})
		},
		BuildUser: NewWeakCitizenUser,
	}
}

// ADEmployeeVerifier verifies Active Directory employee logins. The AD
// entry is mapped onto the employee profile schema with a distinct
// external id namespace.
func ADEmployeeVerifier(resolver PersonResolver) Verifier {
	return Verifier{
		Normalize: func(attrs Attributes) (interface{}, error) {
			return NormalizeADEmployee(attrs)
		},
		Resolve: func(ctx context.Context, profile interface{}) (Person, error) {
			p := profile.(EmployeeProfile)

			return resolver.EmployeeLogin(ctx, EmployeeLoginRequest{
				ExternalID: p.ExternalID,
				FirstName:  p.FirstName,
				LastName:   p.LastName,
				Email:      p.Email,
			})
		},
		BuildUser: NewEmployeeUser,
	}
}

// OIDCCitizenVerifier verifies strong citizen authentication via OIDC.
// Roles come from the backend; strong auth does not restrict them.
func OIDCCitizenVerifier(resolver PersonResolver) Verifier {
	return Verifier{
		Normalize: func(attrs Attributes) (interface{}, error) {
			return NormalizeOIDCCitizen(attrs)
		},
		Resolve: func(ctx context.Context, profile interface{}) (Person, error) {
			p := profile.(CitizenProfile)

			return resolver.CitizenLogin(ctx, CitizenLoginRequest{
				SocialSecurityNumber: p.SocialSecurityNumber,
				FirstName:            p.FirstName,
				LastName:             p.LastName,
			})
		},
		BuildUser: NewStrongCitizenUser,
	}
}
