package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[int64]*domain.User
	rels      map[int64]*domain.UserRelationship
	nextID    int64
	nextRelID int64
	createErr error
	searched  bool // set when Search reaches the repository
	policy    domain.AssignmentPolicy
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users: make(map[int64]*domain.User),
		rels:  make(map[int64]*domain.UserRelationship),
	}
}

func cloneUser(u *domain.User) domain.User { return *u }

func (r *stubUserRepo) sorted() []domain.User {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	u.ID = r.nextID
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, id int64, d domain.UserDetails) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.ApplyDetails(d)
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	for _, rel := range r.rels {
		if rel.ClientID == id || rel.ManagerID == id {
			return false, domain.ErrUserHasRelationships
		}
	}
	delete(r.users, id)
	return true, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) List(context.Context) ([]domain.User, error) { return r.sorted(), nil }

func (r *stubUserRepo) Search(_ context.Context, term string) ([]domain.User, error) {
	r.searched = true
	out := []domain.User{}
	for _, u := range r.sorted() {
		if u.MatchesSearch(term) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListByType(_ context.Context, t domain.UserType) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range r.sorted() {
		if u.Type() == t {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListManagersWithClients(context.Context) ([]domain.ManagerWithClients, error) {
	return nil, nil
}

func (r *stubUserRepo) ListClientsWithManagers(context.Context) ([]domain.ClientWithManager, error) {
	return nil, nil
}

func (r *stubUserRepo) ListClientsForManager(_ context.Context, username string) ([]domain.ManagerWithClients, error) {
	out := []domain.ManagerWithClients{}
	for _, u := range r.sorted() {
		if u.UserName != username {
			continue
		}
		mc := domain.ManagerWithClients{Manager: u, Clients: []domain.RelatedUser{}}
		for _, rel := range r.rels {
			if rel.ManagerID == u.ID {
				mc.Clients = append(mc.Clients, domain.RelatedUser{RelationshipID: rel.ID, User: *r.users[rel.ClientID]})
			}
		}
		out = append(out, mc)
	}
	return out, nil
}

func (r *stubUserRepo) ListRelationships(_ context.Context, userID int64) ([]domain.UserRelationship, error) {
	out := []domain.UserRelationship{}
	for _, rel := range r.rels {
		if rel.ClientID == userID || rel.ManagerID == userID {
			out = append(out, *rel)
		}
	}
	return out, nil
}

// Relationship methods run the real domain rules against the stub.

func (r *stubUserRepo) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.FindByID(ctx, id)
}

func (r *stubUserRepo) FindRelationshipByClient(_ context.Context, clientID int64) (*domain.UserRelationship, error) {
	for _, rel := range r.rels {
		if rel.ClientID == clientID {
			clone := *rel
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) InsertRelationship(_ context.Context, rel *domain.UserRelationship) error {
	r.nextRelID++
	rel.ID = r.nextRelID
	clone := *rel
	r.rels[rel.ID] = &clone
	return nil
}

func (r *stubUserRepo) UpdateRelationshipManager(_ context.Context, relID, managerID int64) error {
	r.rels[relID].ManagerID = managerID
	return nil
}

func (r *stubUserRepo) AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error) {
	return domain.AssignManager(ctx, r, r.policy, clientID, managerID)
}

func (r *stubUserRepo) ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error) {
	return domain.ReassignClientManager(ctx, r, r.policy, clientID, newManagerID)
}

func (r *stubUserRepo) ClientHasManager(ctx context.Context, clientID int64) (bool, error) {
	return domain.ClientHasManager(ctx, r, clientID)
}

var _ ports.UserRepository = (*stubUserRepo)(nil)

// stubLocker records lock/unlock calls.
type stubLocker struct {
	locked   []int64
	unlocked int
	err      error
}

func (l *stubLocker) Lock(_ context.Context, clientID int64) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, clientID)
	return func() { l.unlocked++ }, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func managerInput(name, position string) ports.CreateUserInput {
	return ports.CreateUserInput{
		UserName:  name,
		Email:     name + "@example.com",
		FirstName: name,
		LastName:  "Doe",
		UserType:  "Manager",
		Position:  position,
	}
}

func clientInput(name string, level int) ports.CreateUserInput {
	return ports.CreateUserInput{
		UserName:  name,
		Email:     name + "@example.com",
		FirstName: name,
		LastName:  "Roe",
		UserType:  "Client",
		Level:     level,
	}
}

func mustAdd(t *testing.T, svc *UserService, in ports.CreateUserInput) *domain.User {
	t.Helper()
	u, err := svc.AddUser(context.Background(), in)
	if err != nil {
		t.Fatalf("AddUser(%s) failed: %v", in.UserName, err)
	}
	return u
}

// ---------------------------------------------------------------------------
// AddUser tests
// ---------------------------------------------------------------------------

func TestUserService_AddUser_Manager(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, discardLogger)

	u := mustAdd(t, svc, managerInput("alice", "Lead"))

	if u.ID == 0 {
		t.Fatal("store must assign an id")
	}
	if u.Type() != domain.UserTypeManager || u.Position() != "Lead" {
		t.Errorf("unexpected manager: type=%s position=%q", u.Type(), u.Position())
	}
	if stored := repo.users[u.ID]; stored.Email != "alice@example.com" {
		t.Errorf("email not stored: %q", stored.Email)
	}
}

func TestUserService_AddUser_Client(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)

	u := mustAdd(t, svc, clientInput("bob", 2))
	if u.Type() != domain.UserTypeClient || u.Level() != 2 {
		t.Errorf("unexpected client: type=%s level=%d", u.Type(), u.Level())
	}
}

func TestUserService_AddUser_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   ports.CreateUserInput
	}{
		{"manager without position", managerInput("alice", "")},
		{"manager with blank position", managerInput("alice", "   ")},
		{"client with level zero", clientInput("bob", 0)},
		{"client with negative level", clientInput("bob", -1)},
		{"unknown type", ports.CreateUserInput{UserName: "x", UserType: "Admin"}},
		{"base user type", ports.CreateUserInput{UserName: "x", UserType: "User"}},
		{"missing type", ports.CreateUserInput{UserName: "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubUserRepo()
			svc := NewUserService(repo, nil, discardLogger)

			_, err := svc.AddUser(context.Background(), tc.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(repo.users) != 0 {
				t.Fatal("rejected input must not reach the store")
			}
		})
	}
}

func TestUserService_AddUser_RepoError(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = domain.Unavailable("insert user", errors.New("db down"))
	svc := NewUserService(repo, nil, discardLogger)

	_, err := svc.AddUser(context.Background(), clientInput("bob", 1))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Update / Delete / Get tests
// ---------------------------------------------------------------------------

func TestUserService_UpdateUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, discardLogger)
	u := mustAdd(t, svc, clientInput("bob", 3))

	updated, err := svc.UpdateUser(context.Background(), ports.UpdateUserInput{
		ID: u.ID, UserName: "robert", Email: "robert@example.com", Alias: "rob", FirstName: "Robert", LastName: "Roe",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.UserName != "robert" || updated.Alias != "rob" {
		t.Errorf("fields not replaced: %+v", updated)
	}
	if updated.Type() != domain.UserTypeClient || updated.Level() != 3 {
		t.Errorf("type and level must be immutable: %s %d", updated.Type(), updated.Level())
	}
}

func TestUserService_UpdateUser_NotFound(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)

	_, err := svc.UpdateUser(context.Background(), ports.UpdateUserInput{ID: 404, UserName: "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_InvalidIDs(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	ctx := context.Background()

	if _, err := svc.GetUserByID(ctx, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("GetUserByID(0): expected ErrValidation, got %v", err)
	}
	if _, err := svc.DeleteUser(ctx, -1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("DeleteUser(-1): expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, ports.UpdateUserInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateUser(0): expected ErrValidation, got %v", err)
	}
	if _, err := svc.AssignManager(ctx, 0, 1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("AssignManager(0,1): expected ErrValidation, got %v", err)
	}
	if _, err := svc.ReassignClientManager(ctx, 1, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ReassignClientManager(1,0): expected ErrValidation, got %v", err)
	}
}

func TestUserService_DeleteUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, discardLogger)
	u := mustAdd(t, svc, clientInput("bob", 1))

	deleted, err := svc.DeleteUser(context.Background(), u.ID)
	if err != nil || !deleted {
		t.Fatalf("expected deletion, got %v (err %v)", deleted, err)
	}

	deleted, err = svc.DeleteUser(context.Background(), 12345)
	if err != nil {
		t.Fatalf("deleting a missing user must not fail: %v", err)
	}
	if deleted {
		t.Fatal("expected deleted=false for a missing user")
	}
}

func TestUserService_DeleteUser_BlockedByRelationship(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	alice := mustAdd(t, svc, managerInput("alice", "Lead"))
	bob := mustAdd(t, svc, clientInput("bob", 2))
	if _, err := svc.AssignManager(context.Background(), bob.ID, alice.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	_, err := svc.DeleteUser(context.Background(), alice.ID)
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}
}

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)

	_, err := svc.GetUserByID(context.Background(), 9)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Query tests
// ---------------------------------------------------------------------------

func TestUserService_SearchUsers(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, discardLogger)
	mustAdd(t, svc, managerInput("alice", "Lead"))
	mustAdd(t, svc, clientInput("bob", 1))

	got, err := svc.SearchUsers(context.Background(), "ALICE")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].UserName != "alice" {
		t.Fatalf("unexpected search result: %+v", got)
	}
}

func TestUserService_SearchUsers_BlankTerm(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, nil, discardLogger)
	mustAdd(t, svc, clientInput("bob", 1))

	for _, term := range []string{"", "   "} {
		got, err := svc.SearchUsers(context.Background(), term)
		if err != nil {
			t.Fatalf("blank search must not fail: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil collection, got %#v", got)
		}
	}
	if repo.searched {
		t.Error("blank search must not reach the repository")
	}
}

func TestUserService_GetByType(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	mustAdd(t, svc, managerInput("alice", "Lead"))
	mustAdd(t, svc, clientInput("bob", 1))
	mustAdd(t, svc, clientInput("dave", 4))

	managers, _ := svc.GetManagers(context.Background())
	clients, _ := svc.GetClients(context.Background())
	if len(managers) != 1 || len(clients) != 2 {
		t.Fatalf("expected 1 manager and 2 clients, got %d and %d", len(managers), len(clients))
	}
}

func TestUserService_GetClientsForManager(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	alice := mustAdd(t, svc, managerInput("alice", "Lead"))
	bob := mustAdd(t, svc, clientInput("bob", 1))
	_, _ = svc.AssignManager(context.Background(), bob.ID, alice.ID)

	got, err := svc.GetClientsForManager(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0].Clients) != 1 || got[0].Clients[0].User.ID != bob.ID {
		t.Fatalf("unexpected clients: %+v", got)
	}

	none, err := svc.GetClientsForManager(context.Background(), "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %+v (err %v)", none, err)
	}

	if _, err := svc.GetClientsForManager(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank username, got %v", err)
	}
}

func TestUserService_GetUserRelationships(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	alice := mustAdd(t, svc, managerInput("alice", "Lead"))
	bob := mustAdd(t, svc, clientInput("bob", 1))
	_, _ = svc.AssignManager(context.Background(), bob.ID, alice.ID)

	rels, err := svc.GetUserRelationships(context.Background(), alice.ID)
	if err != nil || len(rels) != 1 || rels[0].ClientID != bob.ID {
		t.Fatalf("unexpected relationships: %+v (err %v)", rels, err)
	}

	if _, err := svc.GetUserRelationships(context.Background(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Relationship tests
// ---------------------------------------------------------------------------

func TestUserService_AssignmentScenario(t *testing.T) {
	repo := newStubUserRepo()
	locker := &stubLocker{}
	svc := NewUserService(repo, locker, discardLogger)
	ctx := context.Background()

	alice := mustAdd(t, svc, managerInput("alice", "Lead"))
	bob := mustAdd(t, svc, clientInput("bob", 2))
	carol := mustAdd(t, svc, managerInput("carol", "Senior"))

	first, err := svc.AssignManager(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if has, _ := repo.ClientHasManager(ctx, bob.ID); !has {
		t.Fatal("client must have a manager after assign")
	}

	if _, err := svc.AssignManager(ctx, bob.ID, alice.ID); !errors.Is(err, domain.ErrInvariantViolated) {
		t.Fatalf("repeat assign: expected ErrInvariantViolated, got %v", err)
	}

	moved, err := svc.ReassignClientManager(ctx, bob.ID, carol.ID)
	if err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
	if moved.ID != first.ID || moved.ManagerID != carol.ID {
		t.Fatalf("unexpected relationship after reassign: %+v", moved)
	}

	if len(locker.locked) != 3 || locker.unlocked != 3 {
		t.Errorf("every assignment call must lock and unlock: locked=%v unlocked=%d", locker.locked, locker.unlocked)
	}
	for _, id := range locker.locked {
		if id != bob.ID {
			t.Errorf("lock taken for %d, want client %d", id, bob.ID)
		}
	}
}

func TestUserService_AssignManager_MissingUsers(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	alice := mustAdd(t, svc, managerInput("alice", "Lead"))

	if _, err := svc.AssignManager(context.Background(), 50, alice.ID); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, err := svc.AssignManager(context.Background(), alice.ID, 50); !errors.Is(err, domain.ErrManagerNotFound) {
		t.Fatalf("expected ErrManagerNotFound, got %v", err)
	}
}

func TestUserService_Reassign_WithoutRelationship(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), nil, discardLogger)
	bob := mustAdd(t, svc, clientInput("bob", 2))
	carol := mustAdd(t, svc, managerInput("carol", "Senior"))

	_, err := svc.ReassignClientManager(context.Background(), bob.ID, carol.ID)
	if !errors.Is(err, domain.ErrClientNotAssigned) {
		t.Fatalf("expected ErrClientNotAssigned, got %v", err)
	}
}

func TestUserService_LockFailure(t *testing.T) {
	repo := newStubUserRepo()
	locker := &stubLocker{err: domain.ErrAssignmentInProgress}
	svc := NewUserService(repo, locker, discardLogger)
	alice := mustAdd(t, svc, managerInput("alice", "Lead"))
	bob := mustAdd(t, svc, clientInput("bob", 2))

	_, err := svc.AssignManager(context.Background(), bob.ID, alice.ID)
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}
	if len(repo.rels) != 0 {
		t.Fatal("no relationship may be written without the lock")
	}
}
