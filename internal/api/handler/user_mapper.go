package handler

import (
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

func toCreateUserInput(req createUserRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		UserName:  req.UserName,
		Email:     req.Email,
		Alias:     req.Alias,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		UserType:  req.UserType,
		Position:  req.Position,
		Level:     req.Level,
	}
}

func toUpdateUserInput(id int64, req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		ID:        id,
		UserName:  req.UserName,
		Email:     req.Email,
		Alias:     req.Alias,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Alias:     u.Alias,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserType:  string(u.Type()),
		Position:  u.Position(),
		Level:     u.Level(),
	}
}

func toUserResponses(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toRelationshipResponse(r domain.UserRelationship) relationshipResponse {
	return relationshipResponse{
		UserRelationshipID: r.ID,
		ClientID:           r.ClientID,
		ManagerID:          r.ManagerID,
	}
}

func toRelationshipResponses(rels []domain.UserRelationship) []relationshipResponse {
	out := make([]relationshipResponse, 0, len(rels))
	for _, r := range rels {
		out = append(out, toRelationshipResponse(r))
	}
	return out
}

func toManagerWithClientsResponses(views []domain.ManagerWithClients) []managerWithClientsResponse {
	out := make([]managerWithClientsResponse, 0, len(views))
	for _, v := range views {
		rels := make([]relationshipResponse, 0, len(v.Clients))
		for _, c := range v.Clients {
			client := toUserResponse(c.User)
			rels = append(rels, relationshipResponse{
				UserRelationshipID: c.RelationshipID,
				ClientID:           c.User.ID,
				ManagerID:          v.Manager.ID,
				Client:             &client,
			})
		}
		out = append(out, managerWithClientsResponse{
			userResponse:        toUserResponse(v.Manager),
			ClientRelationships: rels,
		})
	}
	return out
}

func toClientWithManagerResponses(views []domain.ClientWithManager) []clientWithManagerResponse {
	out := make([]clientWithManagerResponse, 0, len(views))
	for _, v := range views {
		resp := clientWithManagerResponse{userResponse: toUserResponse(v.Client)}
		if v.Manager != nil {
			manager := toUserResponse(v.Manager.User)
			resp.ManagerRelationship = &relationshipResponse{
				UserRelationshipID: v.Manager.RelationshipID,
				ClientID:           v.Client.ID,
				ManagerID:          v.Manager.User.ID,
				Manager:            &manager,
			}
		}
		out = append(out, resp)
	}
	return out
}
