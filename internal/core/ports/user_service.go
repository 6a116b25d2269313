package ports

import (
	"context"

	"github.com/99minutos/user-management/internal/core/domain"
)

// CreateUserInput is the DTO passed from the transport layer to UserService.
// Position is read for managers, Level for clients.
type CreateUserInput struct {
	UserName  string
	Email     string
	Alias     string
	FirstName string
	LastName  string
	UserType  string
	Position  string
	Level     int
}

// UpdateUserInput carries the replaceable shared fields.
type UpdateUserInput struct {
	ID        int64
	UserName  string
	Email     string
	Alias     string
	FirstName string
	LastName  string
}

// UserService defines use-case operations for users and relationships.
type UserService interface {
	AddUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)

	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	SearchUsers(ctx context.Context, term string) ([]domain.User, error)
	GetManagers(ctx context.Context) ([]domain.User, error)
	GetClients(ctx context.Context) ([]domain.User, error)
	GetManagersWithClients(ctx context.Context) ([]domain.ManagerWithClients, error)
	GetClientsWithManagers(ctx context.Context) ([]domain.ClientWithManager, error)
	GetClientsForManager(ctx context.Context, username string) ([]domain.ManagerWithClients, error)
	GetUserRelationships(ctx context.Context, id int64) ([]domain.UserRelationship, error)

	AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error)
	ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error)
}
