package model

import "strings"

// User is a backend account as returned by the profile and admin endpoints.
type User struct {
	ID           string `json:"_id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Department   string `json:"department,omitempty"`
	Designation  string `json:"designation,omitempty"`
	Gender       string `json:"gender,omitempty"`
	ProfilePhoto *Image `json:"profilePhoto,omitempty"`
}

// Roles.
const (
	RoleUser            = "user"
	RoleSecurityGuard   = "securityGuard"
	RoleSecurityOfficer = "securityOfficer"
	RoleAdmin           = "admin"
)

// Roles lists every assignable role in the order the admin panel offers them.
var Roles = []string{RoleUser, RoleSecurityGuard, RoleSecurityOfficer, RoleAdmin}

// Name returns the user's display name.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initial returns the first letter of the first name, or "U".
func (u *User) Initial() string {
	if u == nil || u.FirstName == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(u.FirstName)[0]))
}

// PhotoURL returns the profile photo URL, or "" when there is none.
func (u *User) PhotoURL() string {
	if u == nil || u.ProfilePhoto == nil {
		return ""
	}
	return u.ProfilePhoto.URL
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSecurity reports whether role is a security staff role.
func IsSecurity(role string) bool {
	return role == RoleSecurityGuard || role == RoleSecurityOfficer
}

// RoleName returns a human readable role name.
func RoleName(role string) string {
	switch role {
	case RoleAdmin:
		return "Admin"
	case RoleSecurityOfficer:
		return "Security Officer"
	case RoleSecurityGuard:
		return "Security Guard"
	case RoleUser:
		return "User"
	default:
		return role
	}
}
