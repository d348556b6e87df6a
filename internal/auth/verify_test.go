package auth

import (
	"context"
	"errors"
	"testing"
)

// fakeResolver records the requests it received and answers from a
// canned person record.
type fakeResolver struct {
	person Person
	err    error

	employeeCalls []EmployeeLoginRequest
	citizenCalls  []CitizenLoginRequest
}

func (f *fakeResolver) EmployeeLogin(_ context.Context, req EmployeeLoginRequest) (Person, error) {
	f.employeeCalls = append(f.employeeCalls, req)

	return f.person, f.err
}

func (f *fakeResolver) CitizenLogin(_ context.Context, req CitizenLoginRequest) (Person, error) {
	f.citizenCalls = append(f.citizenCalls, req)

	return f.person, f.err
}

func TestKeycloakEmployeeVerifier_ExternalIDPrefix(t *testing.T) {
	resolver := &fakeResolver{person: Person{ID: "person-1"}}
	verifier := KeycloakEmployeeVerifier(resolver)

	user, err := verifier.Verify(context.Background(), Attributes{"id": {"abc"}})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if len(resolver.employeeCalls) != 1 {
		t.Fatalf("expected 1 employee login call, got %d", len(resolver.employeeCalls))
	}

	if got := resolver.employeeCalls[0].ExternalID; got != "evaka:abc" {
		t.Errorf("backend called with externalId %q, want evaka:abc", got)
	}

	if user.UserType != UserTypeEmployee {
		t.Errorf("UserType = %q, want EMPLOYEE", user.UserType)
	}
}

func TestKeycloakEmployeeVerifier_RolesFromBackend(t *testing.T) {
	resolver := &fakeResolver{person: Person{
		ID:             "person-1",
		GlobalRoles:    []string{"ADMIN", "DIRECTOR"},
		AllScopedRoles: []ScopedRole{{Role: "UNIT_SUPERVISOR", ScopeID: "unit-1"}},
	}}

	user, err := KeycloakEmployeeVerifier(resolver).Verify(context.Background(), Attributes{"id": {"abc"}})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if len(user.GlobalRoles) != 2 || user.GlobalRoles[0] != "ADMIN" {
		t.Errorf("GlobalRoles = %v, want backend roles", user.GlobalRoles)
	}

	if len(user.AllScopedRoles) != 1 || user.AllScopedRoles[0].ScopeID != "unit-1" {
		t.Errorf("AllScopedRoles = %v, want backend scoped roles", user.AllScopedRoles)
	}
}

func TestKeycloakCitizenVerifier_WeakRolesAreFixed(t *testing.T) {
	// Whatever the backend grants, a weak citizen session must carry
	// exactly the weak role set.
	resolver := &fakeResolver{person: Person{
		ID:             "person-2",
		GlobalRoles:    []string{"ADMIN"},
		AllScopedRoles: []ScopedRole{{Role: "UNIT_SUPERVISOR", ScopeID: "unit-1"}},
	}}

	user, err := KeycloakCitizenVerifier(resolver).Verify(context.Background(), Attributes{
		"socialSecurityNumber": {"070644-937X"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if user.UserType != UserTypeCitizenWeak {
		t.Errorf("UserType = %q, want CITIZEN_WEAK", user.UserType)
	}

	if len(user.GlobalRoles) != 1 || user.GlobalRoles[0] != RoleCitizenWeak {
		t.Errorf("GlobalRoles = %v, want [CITIZEN_WEAK]", user.GlobalRoles)
	}

	if len(user.AllScopedRoles) != 0 {
		t.Errorf("AllScopedRoles = %v, want empty", user.AllScopedRoles)
	}
}

func TestVerify_MissingIdentifyingField_SkipsResolver(t *testing.T) {
	resolver := &fakeResolver{person: Person{ID: "person-1"}}

	_, err := KeycloakEmployeeVerifier(resolver).Verify(context.Background(), Attributes{
		"firstName": {"Maija"},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	if len(resolver.employeeCalls) != 0 {
		t.Errorf("resolver was called %d times, want 0", len(resolver.employeeCalls))
	}
}

func TestVerify_ResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("backend down")}

	user, err := KeycloakCitizenVerifier(resolver).Verify(context.Background(), Attributes{
		"socialSecurityNumber": {"070644-937X"},
	})
	if user != nil {
		t.Fatalf("expected no user on resolver failure, got %+v", user)
	}

	if !errors.Is(err, ErrResolverFailure) {
		t.Fatalf("expected ErrResolverFailure, got %v", err)
	}
}

func TestADEmployeeVerifier_ExternalIDPrefix(t *testing.T) {
	resolver := &fakeResolver{person: Person{ID: "person-3"}}

	user, err := ADEmployeeVerifier(resolver).Verify(context.Background(), Attributes{
		"id": {"mmeikalainen"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if got := resolver.employeeCalls[0].ExternalID; got != "ad:mmeikalainen" {
		t.Errorf("backend called with externalId %q, want ad:mmeikalainen", got)
	}

	if user.UserType != UserTypeEmployee {
		t.Errorf("UserType = %q, want EMPLOYEE", user.UserType)
	}
}

func TestOIDCCitizenVerifier_StrongRolesFromBackend(t *testing.T) {
	resolver := &fakeResolver{person: Person{
		ID:          "person-4",
		GlobalRoles: []string{"SOME_ROLE"},
	}}

	user, err := OIDCCitizenVerifier(resolver).Verify(context.Background(), Attributes{
		"socialSecurityNumber": {"070644-937X"},
	})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if user.UserType != UserTypeCitizenStrong {
		t.Errorf("UserType = %q, want CITIZEN_STRONG", user.UserType)
	}

	if len(user.GlobalRoles) != 1 || user.GlobalRoles[0] != "SOME_ROLE" {
		t.Errorf("GlobalRoles = %v, want backend roles", user.GlobalRoles)
	}
}
