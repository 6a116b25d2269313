package domain

import (
	"context"
	"errors"
)

// RelationshipStore is the storage surface the assignment rules run against.
// Repositories hand in a store bound to a single transaction where the
// backend supports one, so the checks and the write see the same snapshot.
type RelationshipStore interface {
	// FindUser returns ErrUserNotFound when no user has the id.
	FindUser(ctx context.Context, id int64) (*User, error)
	// FindRelationshipByClient returns nil, nil when the client is unassigned.
	FindRelationshipByClient(ctx context.Context, clientID int64) (*UserRelationship, error)
	// InsertRelationship stores rel and sets rel.ID.
	InsertRelationship(ctx context.Context, rel *UserRelationship) error
	UpdateRelationshipManager(ctx context.Context, relationshipID, managerID int64) error
}

// AssignmentPolicy toggles the optional checks on top of the base rules.
type AssignmentPolicy struct {
	// EnforceUserTypes requires the client side to be a Client and the
	// manager side to be a Manager.
	EnforceUserTypes bool
}

// AssignManager links clientID to managerID. Both users must exist and the
// client must not have a manager yet.
func AssignManager(ctx context.Context, store RelationshipStore, policy AssignmentPolicy, clientID, managerID int64) (*UserRelationship, error) {
	client, err := findParty(ctx, store, clientID, ErrClientNotFound)
	if err != nil {
		return nil, err
	}
	manager, err := findParty(ctx, store, managerID, ErrManagerNotFound)
	if err != nil {
		return nil, err
	}
	if err := policy.check(client, manager); err != nil {
		return nil, err
	}

	has, err := ClientHasManager(ctx, store, clientID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, ErrClientAlreadyAssigned
	}

	rel := &UserRelationship{ClientID: clientID, ManagerID: managerID}
	if err := store.InsertRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// ReassignClientManager points the existing relationship of clientID at
// newManagerID, keeping the relationship id.
func ReassignClientManager(ctx context.Context, store RelationshipStore, policy AssignmentPolicy, clientID, newManagerID int64) (*UserRelationship, error) {
	client, err := findParty(ctx, store, clientID, ErrClientNotFound)
	if err != nil {
		return nil, err
	}

	rel, err := store.FindRelationshipByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, ErrClientNotAssigned
	}

	manager, err := findParty(ctx, store, newManagerID, ErrManagerNotFound)
	if err != nil {
		return nil, err
	}
	if err := policy.check(client, manager); err != nil {
		return nil, err
	}

	if rel.ManagerID == newManagerID {
		return rel, nil
	}
	if err := store.UpdateRelationshipManager(ctx, rel.ID, newManagerID); err != nil {
		return nil, err
	}
	rel.ManagerID = newManagerID
	return rel, nil
}

// ClientHasManager reports whether any relationship references clientID.
func ClientHasManager(ctx context.Context, store RelationshipStore, clientID int64) (bool, error) {
	rel, err := store.FindRelationshipByClient(ctx, clientID)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}

func findParty(ctx context.Context, store RelationshipStore, id int64, missing error) (*User, error) {
	u, err := store.FindUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p AssignmentPolicy) check(client, manager *User) error {
	if !p.EnforceUserTypes {
		return nil
	}
	if client.Type() != UserTypeClient {
		return ErrNotAClient
	}
	if manager.Type() != UserTypeManager {
		return ErrNotAManager
	}
	return nil
}
