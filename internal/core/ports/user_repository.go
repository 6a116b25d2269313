package ports

import (
	"context"

	"github.com/99minutos/user-management/internal/core/domain"
)

// UserRepository defines persistence operations for users and their
// manager/client relationships. It owns the assignment invariants: the
// relationship methods apply domain.AssignManager and
// domain.ReassignClientManager atomically against the store.
type UserRepository interface {
	// Create inserts user and sets user.ID.
	Create(ctx context.Context, user *domain.User) error
	// Update replaces the shared fields of an existing user and returns it.
	Update(ctx context.Context, id int64, details domain.UserDetails) (*domain.User, error)
	// Delete removes the user. It reports false when no row existed.
	Delete(ctx context.Context, id int64) (bool, error)

	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Search matches term case-insensitively against first name, last name and email.
	Search(ctx context.Context, term string) ([]domain.User, error)
	ListByType(ctx context.Context, userType domain.UserType) ([]domain.User, error)

	ListManagersWithClients(ctx context.Context) ([]domain.ManagerWithClients, error)
	ListClientsWithManagers(ctx context.Context) ([]domain.ClientWithManager, error)
	// ListClientsForManager returns every user named username with the clients assigned to it.
	ListClientsForManager(ctx context.Context, username string) ([]domain.ManagerWithClients, error)
	// ListRelationships returns the relationships userID takes part in, on either side.
	ListRelationships(ctx context.Context, userID int64) ([]domain.UserRelationship, error)

	AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error)
	ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error)
	ClientHasManager(ctx context.Context, clientID int64) (bool, error)
}
