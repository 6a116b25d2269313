package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// ClientLocker serialises assignment changes for a single client across
// service instances (Redis). The returned unlock func must always be called.
type ClientLocker interface {
	Lock(ctx context.Context, clientID int64) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, int64) (func(), error) { return func() {}, nil }

// UserService validates input and forwards to the repository.
type UserService struct {
	repo   ports.UserRepository
	locker ClientLocker
	logger zerolog.Logger
}

// NewUserService returns a UserService. A nil locker disables cross-instance locking.
func NewUserService(repo ports.UserRepository, locker ClientLocker, logger zerolog.Logger) *UserService {
	if locker == nil {
		locker = noopLocker{}
	}
	return &UserService{repo: repo, locker: locker, logger: logger}
}

// AddUser creates a Manager or Client. The type-specific field is mandatory.
func (s *UserService) AddUser(ctx context.Context, input ports.CreateUserInput) (*domain.User, error) {
	userType, ok := domain.ParseUserType(input.UserType)
	if !ok {
		return nil, domain.Invalid("Invalid user type provided")
	}

	user := &domain.User{
		UserName:  input.UserName,
		Email:     input.Email,
		Alias:     input.Alias,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	switch userType {
	case domain.UserTypeManager:
		if strings.TrimSpace(input.Position) == "" {
			return nil, domain.Invalid("Position is required for Manager type")
		}
		user.Profile = domain.ManagerProfile{Position: input.Position}
	case domain.UserTypeClient:
		if input.Level <= 0 {
			return nil, domain.Invalid("Level is required for Client type")
		}
		user.Profile = domain.ClientProfile{Level: input.Level}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_type", string(userType)).Msg("failed to create user")
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("user_type", string(userType)).Msg("user created")
	return user, nil
}

// UpdateUser replaces the shared fields of an existing user.
func (s *UserService) UpdateUser(ctx context.Context, input ports.UpdateUserInput) (*domain.User, error) {
	if err := validID("user id", input.ID); err != nil {
		return nil, err
	}

	user, err := s.repo.Update(ctx, input.ID, domain.UserDetails{
		UserName:  input.UserName,
		Email:     input.Email,
		Alias:     input.Alias,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user updated")
	return user, nil
}

// DeleteUser removes a user. It returns false, not an error, when the user is absent.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if err := validID("user id", id); err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", id).Msg("failed to delete user")
		return false, err
	}
	if deleted {
		s.logger.Info().Int64("user_id", id).Msg("user deleted")
	}
	return deleted, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := validID("user id", id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// SearchUsers returns an empty collection for a blank term without touching the store.
func (s *UserService) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.User{}, nil
	}
	return s.repo.Search(ctx, term)
}

func (s *UserService) GetManagers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListByType(ctx, domain.UserTypeManager)
}

func (s *UserService) GetClients(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListByType(ctx, domain.UserTypeClient)
}

func (s *UserService) GetManagersWithClients(ctx context.Context) ([]domain.ManagerWithClients, error) {
	return s.repo.ListManagersWithClients(ctx)
}

func (s *UserService) GetClientsWithManagers(ctx context.Context) ([]domain.ClientWithManager, error) {
	return s.repo.ListClientsWithManagers(ctx)
}

func (s *UserService) GetClientsForManager(ctx context.Context, username string) ([]domain.ManagerWithClients, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.Invalid("username is required")
	}
	return s.repo.ListClientsForManager(ctx, username)
}

func (s *UserService) GetUserRelationships(ctx context.Context, id int64) ([]domain.UserRelationship, error) {
	if err := validID("user id", id); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListRelationships(ctx, id)
}

// AssignManager links a client to a manager.
func (s *UserService) AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error) {
	if err := validID("clientId", clientID); err != nil {
		return nil, err
	}
	if err := validID("managerId", managerID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rel, err := s.repo.AssignManager(ctx, clientID, managerID)
	if err != nil {
		s.logRelationshipFailure(err, "assign manager", clientID, managerID)
		return nil, err
	}

	s.logger.Info().
		Int64("relationship_id", rel.ID).
		Int64("client_id", clientID).
		Int64("manager_id", managerID).
		Msg("manager assigned")
	return rel, nil
}

// ReassignClientManager moves an assigned client to another manager.
func (s *UserService) ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error) {
	if err := validID("clientId", clientID); err != nil {
		return nil, err
	}
	if err := validID("newManagerId", newManagerID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rel, err := s.repo.ReassignClientManager(ctx, clientID, newManagerID)
	if err != nil {
		s.logRelationshipFailure(err, "reassign manager", clientID, newManagerID)
		return nil, err
	}

	s.logger.Info().
		Int64("relationship_id", rel.ID).
		Int64("client_id", clientID).
		Int64("manager_id", newManagerID).
		Msg("client manager reassigned")
	return rel, nil
}

// logRelationshipFailure logs rule violations at debug and store faults at error.
func (s *UserService) logRelationshipFailure(err error, op string, clientID, managerID int64) {
	ev := s.logger.Error()
	if isRuleViolation(err) {
		ev = s.logger.Debug()
	}
	ev.Err(err).Int64("client_id", clientID).Int64("manager_id", managerID).Msg(op + " rejected")
}

func isRuleViolation(err error) bool {
	return errors.Is(err, domain.ErrInvariantViolated) ||
		errors.Is(err, domain.ErrDependencyMissing) ||
		errors.Is(err, domain.ErrValidation)
}

func validID(field string, id int64) error {
	if id <= 0 {
		return domain.Invalid("%s must be a positive integer", field)
	}
	return nil
}
