package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/user-management/internal/core/domain"
)

// UserRepository implements ports.UserRepository on MongoDB. Ids are integers
// drawn from the counters collection so both backends expose the same API.
type UserRepository struct {
	users    *mongo.Collection
	rels     *mongo.Collection
	counters *mongo.Collection
	policy   domain.AssignmentPolicy
}

func NewUserRepository(db *mongo.Database, policy domain.AssignmentPolicy) *UserRepository {
	return &UserRepository{
		users:    db.Collection(collectionUsers),
		rels:     db.Collection(collectionRelationships),
		counters: db.Collection(collectionCounters),
		policy:   policy,
	}
}

// EnsureIndexes creates the indexes the repository relies on. The unique
// index on client_id is what keeps a client to a single manager when two
// assignments race.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_name", Value: 1}}},
		{Keys: bson.D{{Key: "user_type", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = r.rels.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_user_relationships_client_id"),
		},
		{Keys: bson.D{{Key: "manager_id", Value: 1}}},
	})
	return err
}

// Create inserts the user under the next id from the users counter.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx, collectionUsers)
	if err != nil {
		return storeError("insert user", err)
	}
	doc := toUserDocument(user)
	doc.ID = id
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return storeError("insert user", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, details domain.UserDetails) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"user_name":  details.UserName,
		"email":      details.Email,
		"alias":      details.Alias,
		"first_name": details.FirstName,
		"last_name":  details.LastName,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		return nil, storeError("update user", err)
	}
	u := doc.toDomain()
	return &u, nil
}

// Delete refuses to remove a user any relationship still points at.
//
// Standalone servers have no multi-document transactions, so the check and
// the delete are not atomic. A relationship inserted in between is caught by
// counting again after the delete, in which case the user is put back;
// InsertRelationship covers the opposite ordering.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := r.ensureUnreferenced(ctx, id); err != nil {
		return false, storeError("delete user", err)
	}

	var doc userDocument
	if err := r.users.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, storeError("delete user", err)
	}

	if err := r.ensureUnreferenced(ctx, id); err != nil {
		if _, rerr := r.users.InsertOne(ctx, doc); rerr != nil {
			return false, storeError("restore user", rerr)
		}
		return false, storeError("delete user", err)
	}
	return true, nil
}

func (r *UserRepository) ensureUnreferenced(ctx context.Context, id int64) error {
	n, err := r.rels.CountDocuments(ctx, involving(id), options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrUserHasRelationships
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	u, err := r.findUser(ctx, id)
	if err != nil {
		return nil, storeError("find user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.findUsers(ctx, bson.M{})
	if err != nil {
		return nil, storeError("list users", err)
	}
	return toUsers(docs), nil
}

func (r *UserRepository) Search(ctx context.Context, term string) ([]domain.User, error) {
	docs, err := r.findUsers(ctx, searchFilter(term))
	if err != nil {
		return nil, storeError("search users", err)
	}
	return toUsers(docs), nil
}

func (r *UserRepository) ListByType(ctx context.Context, userType domain.UserType) ([]domain.User, error) {
	docs, err := r.findUsers(ctx, bson.M{"user_type": string(userType)})
	if err != nil {
		return nil, storeError("list users by type", err)
	}
	return toUsers(docs), nil
}

func (r *UserRepository) ListManagersWithClients(ctx context.Context) ([]domain.ManagerWithClients, error) {
	managers, err := r.findUsers(ctx, bson.M{"user_type": string(domain.UserTypeManager)})
	if err != nil {
		return nil, storeError("list managers", err)
	}
	return r.withClients(ctx, managers)
}

func (r *UserRepository) ListClientsForManager(ctx context.Context, username string) ([]domain.ManagerWithClients, error) {
	users, err := r.findUsers(ctx, bson.M{"user_name": username})
	if err != nil {
		return nil, storeError("find manager by name", err)
	}
	return r.withClients(ctx, users)
}

func (r *UserRepository) withClients(ctx context.Context, managers []userDocument) ([]domain.ManagerWithClients, error) {
	out := make([]domain.ManagerWithClients, 0, len(managers))
	if len(managers) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	rels, err := r.findRelationships(ctx, bson.M{"manager_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, storeError("load manager clients", err)
	}

	clientIDs := make([]int64, 0, len(rels))
	for _, rel := range rels {
		clientIDs = append(clientIDs, rel.ClientID)
	}
	clients, err := r.usersByID(ctx, clientIDs)
	if err != nil {
		return nil, storeError("load manager clients", err)
	}

	byManager := make(map[int64][]domain.RelatedUser, len(managers))
	for _, rel := range rels {
		c, ok := clients[rel.ClientID]
		if !ok {
			continue
		}
		byManager[rel.ManagerID] = append(byManager[rel.ManagerID], domain.RelatedUser{RelationshipID: rel.ID, User: c})
	}

	for i := range managers {
		list := byManager[managers[i].ID]
		if list == nil {
			list = []domain.RelatedUser{}
		}
		out = append(out, domain.ManagerWithClients{Manager: managers[i].toDomain(), Clients: list})
	}
	return out, nil
}

func (r *UserRepository) ListClientsWithManagers(ctx context.Context) ([]domain.ClientWithManager, error) {
	clients, err := r.findUsers(ctx, bson.M{"user_type": string(domain.UserTypeClient)})
	if err != nil {
		return nil, storeError("list clients", err)
	}
	out := make([]domain.ClientWithManager, 0, len(clients))
	if len(clients) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
	}
	rels, err := r.findRelationships(ctx, bson.M{"client_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, storeError("load client managers", err)
	}

	managerIDs := make([]int64, 0, len(rels))
	for _, rel := range rels {
		managerIDs = append(managerIDs, rel.ManagerID)
	}
	managers, err := r.usersByID(ctx, managerIDs)
	if err != nil {
		return nil, storeError("load client managers", err)
	}

	byClient := make(map[int64]*domain.RelatedUser, len(rels))
	for _, rel := range rels {
		if m, ok := managers[rel.ManagerID]; ok {
			byClient[rel.ClientID] = &domain.RelatedUser{RelationshipID: rel.ID, User: m}
		}
	}
	for i := range clients {
		out = append(out, domain.ClientWithManager{Client: clients[i].toDomain(), Manager: byClient[clients[i].ID]})
	}
	return out, nil
}

func (r *UserRepository) ListRelationships(ctx context.Context, userID int64) ([]domain.UserRelationship, error) {
	rels, err := r.findRelationships(ctx, involving(userID))
	if err != nil {
		return nil, storeError("list relationships", err)
	}
	out := make([]domain.UserRelationship, 0, len(rels))
	for i := range rels {
		out = append(out, rels[i].toDomain())
	}
	return out, nil
}

// AssignManager applies the assignment rules without a transaction; the
// unique client_id index rejects a concurrent duplicate insert.
func (r *UserRepository) AssignManager(ctx context.Context, clientID, managerID int64) (*domain.UserRelationship, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rel, err := domain.AssignManager(ctx, relationshipStore{r}, r.policy, clientID, managerID)
	if err != nil {
		return nil, storeError("assign manager", err)
	}
	return rel, nil
}

func (r *UserRepository) ReassignClientManager(ctx context.Context, clientID, newManagerID int64) (*domain.UserRelationship, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rel, err := domain.ReassignClientManager(ctx, relationshipStore{r}, r.policy, clientID, newManagerID)
	if err != nil {
		return nil, storeError("reassign manager", err)
	}
	return rel, nil
}

func (r *UserRepository) ClientHasManager(ctx context.Context, clientID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	has, err := domain.ClientHasManager(ctx, relationshipStore{r}, clientID)
	if err != nil {
		return false, storeError("client has manager", err)
	}
	return has, nil
}

func (r *UserRepository) nextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c counterDocument
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

func (r *UserRepository) findUser(ctx context.Context, id int64) (*domain.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *UserRepository) findUsers(ctx context.Context, filter any) ([]userDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	docs := []userDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *UserRepository) usersByID(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := r.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for i := range docs {
		out[docs[i].ID] = docs[i].toDomain()
	}
	return out, nil
}

func (r *UserRepository) findRelationships(ctx context.Context, filter any) ([]relationshipDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.rels.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	docs := []relationshipDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// relationshipStore is the domain.RelationshipStore view of the repository.
type relationshipStore struct {
	r *UserRepository
}

func (s relationshipStore) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.r.findUser(ctx, id)
}

func (s relationshipStore) FindRelationshipByClient(ctx context.Context, clientID int64) (*domain.UserRelationship, error) {
	var doc relationshipDocument
	if err := s.r.rels.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	rel := doc.toDomain()
	return &rel, nil
}

// InsertRelationship writes the relationship and then confirms both users
// still exist, removing it again if a concurrent delete won.
func (s relationshipStore) InsertRelationship(ctx context.Context, rel *domain.UserRelationship) error {
	id, err := s.r.nextID(ctx, collectionRelationships)
	if err != nil {
		return err
	}
	doc := relationshipDocument{ID: id, ClientID: rel.ClientID, ManagerID: rel.ManagerID}
	if _, err := s.r.rels.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrClientAlreadyAssigned
		}
		return err
	}

	if err := s.partiesExist(ctx, rel.ClientID, rel.ManagerID); err != nil {
		if _, derr := s.r.rels.DeleteOne(ctx, bson.M{"_id": id}); derr != nil {
			return errors.Join(err, derr)
		}
		return err
	}
	rel.ID = id
	return nil
}

// UpdateRelationshipManager moves the relationship to managerID, restoring
// the previous manager if managerID was deleted meanwhile.
func (s relationshipStore) UpdateRelationshipManager(ctx context.Context, relationshipID, managerID int64) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev relationshipDocument
	err := s.r.rels.FindOneAndUpdate(ctx, bson.M{"_id": relationshipID}, bson.M{"$set": bson.M{"manager_id": managerID}}, opts).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrClientNotAssigned
		}
		return err
	}

	if err := s.partiesExist(ctx, prev.ClientID, managerID); err != nil {
		_, rerr := s.r.rels.UpdateOne(ctx, bson.M{"_id": relationshipID}, bson.M{"$set": bson.M{"manager_id": prev.ManagerID}})
		if rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func (s relationshipStore) partiesExist(ctx context.Context, clientID, managerID int64) error {
	if _, err := s.r.findUser(ctx, clientID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrClientNotFound
		}
		return err
	}
	if _, err := s.r.findUser(ctx, managerID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrManagerNotFound
		}
		return err
	}
	return nil
}

// involving matches relationships where id is on either side.
func involving(id int64) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"client_id": id},
		bson.M{"manager_id": id},
	}}
}

// searchFilter matches term literally and case-insensitively against the
// first name, last name and email.
func searchFilter(term string) bson.M {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"first_name": re},
		bson.M{"last_name": re},
		bson.M{"email": re},
	}}
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrUserNotFound
	case domain.Classified(err):
		return err
	}
	return domain.Unavailable(op, err)
}
