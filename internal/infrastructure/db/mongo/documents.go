package mongo

import (
	"github.com/99minutos/user-management/internal/core/domain"
)

const (
	collectionUsers         = "users"
	collectionRelationships = "user_relationships"
	collectionCounters      = "counters"
)

// userDocument is the stored shape of a user. Position and Level are only
// present on managers and clients respectively.
type userDocument struct {
	ID        int64   `bson:"_id"`
	UserName  string  `bson:"user_name"`
	Email     string  `bson:"email"`
	Alias     string  `bson:"alias"`
	FirstName string  `bson:"first_name"`
	LastName  string  `bson:"last_name"`
	UserType  string  `bson:"user_type"`
	Position  *string `bson:"position,omitempty"`
	Level     *int    `bson:"level,omitempty"`
}

type relationshipDocument struct {
	ID        int64 `bson:"_id"`
	ClientID  int64 `bson:"client_id"`
	ManagerID int64 `bson:"manager_id"`
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func toUserDocument(u *domain.User) userDocument {
	doc := userDocument{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Alias:     u.Alias,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserType:  string(u.Type()),
	}
	switch p := u.Profile.(type) {
	case domain.ManagerProfile:
		position := p.Position
		doc.Position = &position
	case domain.ClientProfile:
		level := p.Level
		doc.Level = &level
	}
	return doc
}

func (d *userDocument) toDomain() domain.User {
	u := domain.User{
		ID:        d.ID,
		UserName:  d.UserName,
		Email:     d.Email,
		Alias:     d.Alias,
		FirstName: d.FirstName,
		LastName:  d.LastName,
	}
	switch domain.UserType(d.UserType) {
	case domain.UserTypeManager:
		p := domain.ManagerProfile{}
		if d.Position != nil {
			p.Position = *d.Position
		}
		u.Profile = p
	case domain.UserTypeClient:
		p := domain.ClientProfile{}
		if d.Level != nil {
			p.Level = *d.Level
		}
		u.Profile = p
	}
	return u
}

func toUsers(docs []userDocument) []domain.User {
	out := make([]domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out
}

func (d *relationshipDocument) toDomain() domain.UserRelationship {
	return domain.UserRelationship{ID: d.ID, ClientID: d.ClientID, ManagerID: d.ManagerID}
}
