package relational

import "github.com/99minutos/user-management/internal/core/domain"

// userRecord is a row of the users table. Managers and clients share the
// table; user_type is the discriminator and position/level are NULL for
// the other type.
type userRecord struct {
	UserID    int64   `gorm:"column:user_id;primaryKey;autoIncrement"`
	UserName  string  `gorm:"column:user_name;size:256;index"`
	Email     string  `gorm:"column:email;size:256"`
	Alias     string  `gorm:"column:alias;size:256"`
	FirstName string  `gorm:"column:first_name;size:256"`
	LastName  string  `gorm:"column:last_name;size:256"`
	UserType  string  `gorm:"column:user_type;size:16;not null;index"`
	Position  *string `gorm:"column:position;size:256"`
	Level     *int    `gorm:"column:level"`
}

func (userRecord) TableName() string { return "users" }

// relationshipRecord is a row of user_relationships. The unique index on
// client_id enforces one manager per client at the storage level.
type relationshipRecord struct {
	UserRelationshipID int64 `gorm:"column:user_relationship_id;primaryKey;autoIncrement"`
	ClientID           int64 `gorm:"column:client_id;not null;uniqueIndex:ux_user_relationships_client_id"`
	ManagerID          int64 `gorm:"column:manager_id;not null;index"`

	Client  *userRecord `gorm:"foreignKey:ClientID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Manager *userRecord `gorm:"foreignKey:ManagerID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (relationshipRecord) TableName() string { return "user_relationships" }

func toUserRecord(u *domain.User) userRecord {
	rec := userRecord{
		UserID:    u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Alias:     u.Alias,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserType:  string(u.Type()),
	}
	switch p := u.Profile.(type) {
	case domain.ManagerProfile:
		rec.Position = &p.Position
	case domain.ClientProfile:
		rec.Level = &p.Level
	}
	return rec
}

func (r *userRecord) toDomain() domain.User {
	u := domain.User{
		ID:        r.UserID,
		UserName:  r.UserName,
		Email:     r.Email,
		Alias:     r.Alias,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
	switch domain.UserType(r.UserType) {
	case domain.UserTypeManager:
		p := domain.ManagerProfile{}
		if r.Position != nil {
			p.Position = *r.Position
		}
		u.Profile = p
	case domain.UserTypeClient:
		p := domain.ClientProfile{}
		if r.Level != nil {
			p.Level = *r.Level
		}
		u.Profile = p
	}
	return u
}

func toUsers(recs []userRecord) []domain.User {
	out := make([]domain.User, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out
}

func (r *relationshipRecord) toDomain() domain.UserRelationship {
	return domain.UserRelationship{
		ID:        r.UserRelationshipID,
		ClientID:  r.ClientID,
		ManagerID: r.ManagerID,
	}
}
