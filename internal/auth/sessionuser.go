package auth

import "context"

// UserType tags how the session user authenticated and what kind of
// principal it is.
type UserType string

const (
	// UserTypeEmployee is a municipal employee (Keycloak SAML or AD).
	UserTypeEmployee UserType = "EMPLOYEE"
	// UserTypeCitizenWeak is a citizen authenticated without strong verification.
	UserTypeCitizenWeak UserType = "CITIZEN_WEAK"
	// UserTypeCitizenStrong is a citizen authenticated with strong verification.
	UserTypeCitizenStrong UserType = "CITIZEN_STRONG"
	// UserTypeMobileDevice is a paired unit device authenticated by PIN.
	UserTypeMobileDevice UserType = "MOBILE_DEVICE"
)

const (
	// RoleCitizenWeak is the only role a weakly authenticated citizen ever holds.
	RoleCitizenWeak = "CITIZEN_WEAK"
	// RoleMobile is the global role of a paired mobile device.
	RoleMobile = "MOBILE"
)

// ScopedRole is a permission role bound to a specific organizational
// unit rather than global.
type ScopedRole struct {
	Role    string `json:"role"`
	ScopeID string `json:"scopeId"`
}

// SessionUser is the canonical post-login identity carried by the
// session. Its id is the opaque backend-assigned person identifier, not
// anything provider-specific.
type SessionUser struct {
	ID             string       `json:"id"`
	UserType       UserType     `json:"userType"`
	GlobalRoles    []string     `json:"globalRoles"`
	AllScopedRoles []ScopedRole `json:"allScopedRoles"`
}

// Person is the canonical person record the backend returns from a
// login call: the upserted person id plus its roles.
type Person struct {
	ID             string       `json:"id"`
	GlobalRoles    []string     `json:"globalRoles"`
	AllScopedRoles []ScopedRole `json:"allScopedRoles"`
}

// EmployeeLoginRequest is the input of the backend employee login upsert.
type EmployeeLoginRequest struct {
	ExternalID string `json:"externalId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
}

// CitizenLoginRequest is the input of the backend citizen login upsert.
type CitizenLoginRequest struct {
	SocialSecurityNumber string `json:"socialSecurityNumber"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
}

// PersonResolver is the backend login operation: an idempotent upsert
// that creates or finds the person record and returns its canonical
// roles. Failures propagate as login failures, never as partial sessions.
type PersonResolver interface {
	EmployeeLogin(ctx context.Context, req EmployeeLoginRequest) (Person, error)
	CitizenLogin(ctx context.Context, req CitizenLoginRequest) (Person, error)
}

// NewEmployeeUser builds the session user for an employee. Roles are
// whatever the backend granted.
func NewEmployeeUser(p Person) SessionUser {
	return SessionUser{
		ID:             p.ID,
		UserType:       UserTypeEmployee,
		GlobalRoles:    copyRoles(p.GlobalRoles),
		AllScopedRoles: copyScopedRoles(p.AllScopedRoles),
	}
}

// NewStrongCitizenUser builds the session user for a strongly
// authenticated citizen. Roles are whatever the backend granted.
func NewStrongCitizenUser(p Person) SessionUser {
	return SessionUser{
		ID:             p.ID,
		UserType:       UserTypeCitizenStrong,
		GlobalRoles:    copyRoles(p.GlobalRoles),
		AllScopedRoles: copyScopedRoles(p.AllScopedRoles),
	}
}

// NewWeakCitizenUser builds the session user for a weakly authenticated
// citizen. Weak auth must never escalate: the roles are fixed here no
// matter what the backend returned.
func NewWeakCitizenUser(p Person) SessionUser {
	return SessionUser{
		ID:             p.ID,
		UserType:       UserTypeCitizenWeak,
		GlobalRoles:    []string{RoleCitizenWeak},
		AllScopedRoles: []ScopedRole{},
	}
}

// NewMobileDeviceUser builds the session user for a paired unit device.
func NewMobileDeviceUser(deviceID, unitID string) SessionUser {
	return SessionUser{
		ID:             deviceID,
		UserType:       UserTypeMobileDevice,
		GlobalRoles:    []string{RoleMobile},
		AllScopedRoles: []ScopedRole{{Role: RoleMobile, ScopeID: unitID}},
	}
}

func copyRoles(roles []string) []string {
	out := make([]string, len(roles))
	copy(out, roles)

	return out
}

func copyScopedRoles(roles []ScopedRole) []ScopedRole {
	out := make([]ScopedRole, len(roles))
	copy(out, roles)

	return out
}
