package domain

// UserRelationship assigns one client to one manager. At most one row exists
// per ClientID.
type UserRelationship struct {
	ID        int64
	ClientID  int64
	ManagerID int64
}

// RelatedUser is the user on the other side of a relationship.
type RelatedUser struct {
	RelationshipID int64
	User           User
}

// ManagerWithClients is a manager together with every client assigned to it.
type ManagerWithClients struct {
	Manager User
	Clients []RelatedUser
}

// ClientWithManager is a client together with its manager, if any.
type ClientWithManager struct {
	Client  User
	Manager *RelatedUser
}
