package domain

import "strconv"

// Role is the authorization role carried by an authenticated subject.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r belongs on the staff side (staff or admin).
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the authenticated subject bound to a request or connection.
// For connections it is fixed for the connection's whole lifetime.
type Identity struct {
	SubjectID   int64  `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Subject returns the subject id in its string form, as used in JWT claims.
func (i Identity) Subject() string {
	return strconv.FormatInt(i.SubjectID, 10)
}
