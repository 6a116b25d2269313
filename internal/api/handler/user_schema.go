package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createUserRequest struct {
	UserName  string `json:"userName"  validate:"max=100"`
	Email     string `json:"email"     validate:"omitempty,email,max=255"`
	Alias     string `json:"alias"     validate:"max=100"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
	// UserType is "Manager" or "Client".
	UserType string `json:"userType"`
	// Position is required for managers.
	Position string `json:"position"  validate:"max=100"`
	// Level is required (positive) for clients.
	Level int `json:"level"`
}

type updateUserRequest struct {
	UserName  string `json:"userName"  validate:"max=100"`
	Email     string `json:"email"     validate:"omitempty,email,max=255"`
	Alias     string `json:"alias"     validate:"max=100"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
}

type assignManagerRequest struct {
	ClientID  int64 `json:"clientId"  validate:"required,gt=0"`
	ManagerID int64 `json:"managerId" validate:"required,gt=0"`
}

type reassignManagerRequest struct {
	ClientID     int64 `json:"clientId"     validate:"required,gt=0"`
	NewManagerID int64 `json:"newManagerId" validate:"required,gt=0"`
}

// --- Response types ---

type userResponse struct {
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	Alias     string `json:"alias"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserType  string `json:"userType"`
	Position  string `json:"position,omitempty"`
	Level     int    `json:"level,omitempty"`
}

type relationshipResponse struct {
	UserRelationshipID int64         `json:"userRelationshipId"`
	ClientID           int64         `json:"clientId"`
	ManagerID          int64         `json:"managerId"`
	Client             *userResponse `json:"client,omitempty"`
	Manager            *userResponse `json:"manager,omitempty"`
}

type managerWithClientsResponse struct {
	userResponse
	ClientRelationships []relationshipResponse `json:"clientRelationships"`
}

type clientWithManagerResponse struct {
	userResponse
	// ManagerRelationship is null for an unassigned client.
	ManagerRelationship *relationshipResponse `json:"managerRelationship"`
}
