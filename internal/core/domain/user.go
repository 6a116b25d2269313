package domain

import "strings"

// UserType is the stored discriminator distinguishing base users, managers
// and clients sharing one table.
type UserType string

const (
	UserTypeUser    UserType = "User"
	UserTypeManager UserType = "Manager"
	UserTypeClient  UserType = "Client"
)

// ParseUserType maps a tag supplied by a caller to a creatable user type.
// Only Manager and Client can be created; anything else is rejected.
func ParseUserType(s string) (UserType, bool) {
	switch UserType(strings.TrimSpace(s)) {
	case UserTypeManager:
		return UserTypeManager, true
	case UserTypeClient:
		return UserTypeClient, true
	}
	return "", false
}

// Profile is the type-specific payload of a User. It is either a
// ManagerProfile or a ClientProfile; a nil Profile is a base user.
type Profile interface {
	UserType() UserType
	isProfile()
}

// ManagerProfile holds the fields only managers carry.
type ManagerProfile struct {
	Position string
}

func (ManagerProfile) UserType() UserType { return UserTypeManager }
func (ManagerProfile) isProfile()         {}

// ClientProfile holds the fields only clients carry.
type ClientProfile struct {
	Level int
}

func (ClientProfile) UserType() UserType { return UserTypeClient }
func (ClientProfile) isProfile()         {}

// User is a person known to the system. The type is fixed at creation and
// carried by Profile.
type User struct {
	ID        int64
	UserName  string
	Email     string
	Alias     string
	FirstName string
	LastName  string
	Profile   Profile
}

// Type returns the discriminator derived from the profile.
func (u *User) Type() UserType {
	if u.Profile == nil {
		return UserTypeUser
	}
	return u.Profile.UserType()
}

// Position returns the manager position, or "" for non-managers.
func (u *User) Position() string {
	if p, ok := u.Profile.(ManagerProfile); ok {
		return p.Position
	}
	return ""
}

// Level returns the client level, or 0 for non-clients.
func (u *User) Level() int {
	if p, ok := u.Profile.(ClientProfile); ok {
		return p.Level
	}
	return 0
}

// ApplyDetails replaces the shared string fields, leaving ID and Profile untouched.
func (u *User) ApplyDetails(d UserDetails) {
	u.UserName = d.UserName
	u.Email = d.Email
	u.Alias = d.Alias
	u.FirstName = d.FirstName
	u.LastName = d.LastName
}

// UserDetails are the mutable shared fields of a User.
type UserDetails struct {
	UserName  string
	Email     string
	Alias     string
	FirstName string
	LastName  string
}

// MatchesSearch reports whether term occurs in the first name, last name or
// email, ignoring case. Folding is Unicode-aware.
func (u *User) MatchesSearch(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(u.FirstName), term) ||
		strings.Contains(strings.ToLower(u.LastName), term) ||
		strings.Contains(strings.ToLower(u.Email), term)
}
