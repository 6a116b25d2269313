package relational

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/99minutos/user-management/internal/core/domain"
)

const searchBatchSize = 500

// UserRepository implements ports.UserRepository on top of gorm.
type UserRepository struct {
	db     *gorm.DB
	policy domain.AssignmentPolicy
}

// NewUserRepository creates a UserRepository applying policy to assignments.
func NewUserRepository(db *gorm.DB, policy domain.AssignmentPolicy) *UserRepository {
	return &UserRepository{db: db, policy: policy}
}

// Create inserts a new user row and sets user.ID.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	rec := toUserRecord(user)
	rec.UserID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return storeError("insert user", err)
	}
	user.ID = rec.UserID
	return nil
}

// Update replaces the shared string fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, id int64, details domain.UserDetails) (*domain.User, error) {
	var updated domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userRecord
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		user := rec.toDomain()
		user.ApplyDetails(details)

		err := tx.Model(&rec).Updates(map[string]any{
			"user_name":  user.UserName,
			"email":      user.Email,
			"alias":      user.Alias,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		}).Error
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, storeError("update user", err)
	}
	return &updated, nil
}

// Delete removes the user row. A user still referenced by a relationship
// is refused by the foreign keys and reported as ErrUserHasRelationships.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&userRecord{}, id)
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return false, domain.ErrUserHasRelationships
		}
		return false, storeError("delete user", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, storeError("find user", err)
	}
	u := rec.toDomain()
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Order("user_id").Find(&recs).Error; err != nil {
		return nil, storeError("list users", err)
	}
	return toUsers(recs), nil
}

// Search matches term as a literal substring, ignoring case. Postgres folds
// case with ILIKE; SQLite's LOWER only folds ASCII, so there the rows are
// scanned in batches and matched in Go.
func (r *UserRepository) Search(ctx context.Context, term string) ([]domain.User, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == DriverPostgres {
		pattern := "%" + escapeLike(term) + "%"
		var recs []userRecord
		err := db.Where(`first_name ILIKE ? ESCAPE '\' OR last_name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
			Order("user_id").
			Find(&recs).Error
		if err != nil {
			return nil, storeError("search users", err)
		}
		return toUsers(recs), nil
	}

	found := []domain.User{}
	var batch []userRecord
	err := db.FindInBatches(&batch, searchBatchSize, func(*gorm.DB, int) error {
		for _, u := range toUsers(batch) {
			if u.MatchesSearch(term) {
				found = append(found, u)
			}
		}
		return nil
	}).Error
	if err != nil {
		return nil, storeError("search users", err)
	}
	return found, nil
}

func (r *UserRepository) ListByType(ctx context.Context, userType domain.UserType) ([]domain.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Where("user_type = ?", string(userType)).Order("user_id").Find(&recs).Error; err != nil {
		return nil, storeError("list users by type", err)
	}
	return toUsers(recs), nil
}

// ListManagersWithClients returns every manager with the clients assigned to it.
func (r *UserRepository) ListManagersWithClients(ctx context.Context) ([]domain.ManagerWithClients, error) {
	var managers []userRecord
	if err := r.db.WithContext(ctx).Where("user_type = ?", string(domain.UserTypeManager)).Order("user_id").Find(&managers).Error; err != nil {
		return nil, storeError("list managers", err)
	}
	return r.withClients(ctx, managers)
}

// ListClientsForManager looks the manager up by user name.
func (r *UserRepository) ListClientsForManager(ctx context.Context, username string) ([]domain.ManagerWithClients, error) {
	var users []userRecord
	if err := r.db.WithContext(ctx).Where("user_name = ?", username).Order("user_id").Find(&users).Error; err != nil {
		return nil, storeError("find manager by name", err)
	}
	return r.withClients(ctx, users)
}

func (r *UserRepository) withClients(ctx context.Context, managers []userRecord) ([]domain.ManagerWithClients, error) {
	out := make([]domain.ManagerWithClients, 0, len(managers))
	if len(managers) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.UserID)
	}

	var rels []relationshipRecord
	err := r.db.WithContext(ctx).
		Preload("Client").
		Where("manager_id IN ?", ids).
		Order("user_relationship_id").
		Find(&rels).Error
	if err != nil {
		return nil, storeError("load manager clients", err)
	}

	byManager := make(map[int64][]domain.RelatedUser, len(managers))
	for i := range rels {
		rel := &rels[i]
		if rel.Client == nil {
			continue
		}
		byManager[rel.ManagerID] = append(byManager[rel.ManagerID], domain.RelatedUser{
			RelationshipID: rel.UserRelationshipID,
			User:           rel.Client.toDomain(),
		})
	}

	for i := range managers {
		clients := byManager[managers[i].UserID]
		if clients == nil {
			clients = []domain.RelatedUser{}
		}
		out = append(out, domain.ManagerWithClients{Manager: managers[i].toDomain(), Clients: clients})
	}
	return out, nil
}

// ListClientsWithManagers returns every client with its manager, if any.
func (r *UserRepository) ListClientsWithManagers(ctx context.Context) ([]domain.ClientWithManager, error) {
	var clients []userRecord
	if err := r.db.WithContext(ctx).Where("user_type = ?", string(domain.UserTypeClient)).Order("user_id").Find(&clients).Error; err != nil {
		return nil, storeError("list clients", err)
	}

	out := make([]domain.ClientWithManager, 0, len(clients))
	if len(clients) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.UserID)
	}

	var rels []relationshipRecord
	if err := r.db.WithContext(ctx).Preload("Manager").Where("client_id IN ?", ids).Find(&rels).Error; err != nil {
		return nil, storeError("load client managers", err)
	}

	byClient := make(map[int64]*domain.RelatedUser, len(rels))
	for i := range rels {
		rel := &rels[i]
		if rel.Manager == nil {
			continue
		}
		byClient[rel.ClientID] = &domain.RelatedUser{
			RelationshipID: rel.UserRelationshipID,
			User:           rel.Manager.toDomain(),
		}
	}

	for i := range clients {
		out = append(out, domain.ClientWithManager{
			Client:  clients[i].toDomain(),
			Manager: byClient[clients[i].UserID],
		})
	}
	return out, nil
}

// ListRelationships returns the relationships where userID is client or manager.
func (r *UserRepository) ListRelationships(ctx context.Context, userID int64) ([]domain.UserRelationship, error) {
	var rels []relationshipRecord
	err := r.db.WithContext(ctx).
		Where("client_id = ? OR manager_id = ?", userID, userID).
		Order("user_relationship_id").
		Find(&rels).Error
	if err != nil {
		return nil, storeError("list relationships", err)
	}

	out := make([]domain.UserRelationship, 0, len(rels))
	for i := range rels {
		out = append(out, rels[i].toDomain())
	}
	return out, nil
}

// AssignManager runs the assignment rules and the insert in one transaction.
// A concurrent assign for the same client that slips past the check is
// stopped by the unique index on client_id.
func (r *UserRepository) AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error) {
	var rel *domain.UserRelationship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rel, err = domain.AssignManager(ctx, txStore{tx: tx}, r.policy, clientID, managerID)
		return err
	})
	if err != nil {
		return nil, storeError("assign manager", err)
	}
	return rel, nil
}

// ReassignClientManager updates the client's relationship in place.
func (r *UserRepository) ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error) {
	var rel *domain.UserRelationship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rel, err = domain.ReassignClientManager(ctx, txStore{tx: tx, lock: true}, r.policy, clientID, newManagerID)
		return err
	})
	if err != nil {
		return nil, storeError("reassign manager", err)
	}
	return rel, nil
}

func (r *UserRepository) ClientHasManager(ctx context.Context, clientID int64) (bool, error) {
	has, err := domain.ClientHasManager(ctx, txStore{tx: r.db.WithContext(ctx)}, clientID)
	if err != nil {
		return false, storeError("client has manager", err)
	}
	return has, nil
}

// txStore is the domain.RelationshipStore view of one transaction.
type txStore struct {
	tx *gorm.DB
	// lock takes a row lock on the relationship read, where the dialect has one.
	lock bool
}

func (s txStore) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	var rec userRecord
	if err := s.tx.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u := rec.toDomain()
	return &u, nil
}

func (s txStore) FindRelationshipByClient(ctx context.Context, clientID int64) (*domain.UserRelationship, error) {
	q := s.tx.WithContext(ctx)
	if s.lock && q.Dialector.Name() == DriverPostgres {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var recs []relationshipRecord
	if err := q.Where("client_id = ?", clientID).Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	rel := recs[0].toDomain()
	return &rel, nil
}

func (s txStore) InsertRelationship(ctx context.Context, rel *domain.UserRelationship) error {
	rec := relationshipRecord{ClientID: rel.ClientID, ManagerID: rel.ManagerID}
	if err := s.tx.WithContext(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrClientAlreadyAssigned
		case isForeignKeyViolation(err):
			return domain.ErrManagerNotFound
		}
		return err
	}
	rel.ID = rec.UserRelationshipID
	return nil
}

func (s txStore) UpdateRelationshipManager(ctx context.Context, relationshipID, managerID int64) error {
	err := s.tx.WithContext(ctx).
		Model(&relationshipRecord{}).
		Where("user_relationship_id = ?", relationshipID).
		Update("manager_id", managerID).Error
	if err != nil && isForeignKeyViolation(err) {
		return domain.ErrManagerNotFound
	}
	return err
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
