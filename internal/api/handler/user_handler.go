package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-management/internal/api/metrics"
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// UserHandler handles HTTP requests for users and manager assignments.
// Errors are returned to echo and rendered by the central error handler.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register mounts the user routes on g.
func (h *UserHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/search", h.Search)
	g.GET("/managers", h.Managers)
	g.GET("/clients", h.Clients)
	g.GET("/managers-with-clients", h.ManagersWithClients)
	g.GET("/clients-with-managers", h.ClientsWithManagers)
	g.GET("/manager/:username/clients", h.ClientsForManager)
	g.POST("/assign-manager", h.AssignManager)
	g.PUT("/reassign-client-manager", h.ReassignClientManager)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/relationships", h.Relationships)
}

// List handles GET /users.
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Success      200  {array}   userResponse
// @Failure      500  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.GetAllUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Get handles GET /users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

// Search handles GET /users/search?searchTerm=.
//
// @Summary      Search users by first name, last name or email
// @Tags         users
// @Produce      json
// @Param        searchTerm  query     string  true  "Case-insensitive substring"
// @Success      200         {array}   userResponse
// @Failure      400         {object}  errorResponse
// @Failure      500         {object}  errorResponse
// @Router       /users/search [get]
func (h *UserHandler) Search(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("searchTerm"))
	if term == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Please provide a search term"})
	}
	users, err := h.service.SearchUsers(c.Request().Context(), term)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Managers handles GET /users/managers.
//
// @Summary      List managers
// @Tags         users
// @Produce      json
// @Success      200  {array}   userResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/managers [get]
func (h *UserHandler) Managers(c echo.Context) error {
	users, err := h.service.GetManagers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Clients handles GET /users/clients.
//
// @Summary      List clients
// @Tags         users
// @Produce      json
// @Success      200  {array}   userResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/clients [get]
func (h *UserHandler) Clients(c echo.Context) error {
	users, err := h.service.GetClients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// ManagersWithClients handles GET /users/managers-with-clients.
//
// @Summary      List managers with their assigned clients
// @Tags         relationships
// @Produce      json
// @Success      200  {array}   managerWithClientsResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/managers-with-clients [get]
func (h *UserHandler) ManagersWithClients(c echo.Context) error {
	views, err := h.service.GetManagersWithClients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toManagerWithClientsResponses(views))
}

// ClientsWithManagers handles GET /users/clients-with-managers.
//
// @Summary      List clients with their manager
// @Tags         relationships
// @Produce      json
// @Success      200  {array}   clientWithManagerResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/clients-with-managers [get]
func (h *UserHandler) ClientsWithManagers(c echo.Context) error {
	views, err := h.service.GetClientsWithManagers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toClientWithManagerResponses(views))
}

// ClientsForManager handles GET /users/manager/:username/clients.
//
// @Summary      List the clients of the manager with the given user name
// @Tags         relationships
// @Produce      json
// @Param        username  path      string  true  "Manager user name"
// @Success      200       {array}   managerWithClientsResponse
// @Failure      400       {object}  errorResponse
// @Failure      500       {object}  errorResponse
// @Router       /users/manager/{username}/clients [get]
func (h *UserHandler) ClientsForManager(c echo.Context) error {
	views, err := h.service.GetClientsForManager(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toManagerWithClientsResponses(views))
}

// Relationships handles GET /users/:id/relationships.
//
// @Summary      List the relationships a user takes part in
// @Tags         relationships
// @Produce      json
// @Param        id   path      int  true  "User id"
// @Success      200  {array}   relationshipResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id}/relationships [get]
func (h *UserHandler) Relationships(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rels, err := h.service.GetUserRelationships(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRelationshipResponses(rels))
}

// Create handles POST /users.
//
// @Summary      Create a manager or a client
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "User details"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.AddUser(c.Request().Context(), toCreateUserInput(req))
	if err != nil {
		return err
	}
	metrics.UsersCreatedTotal.WithLabelValues(string(user.Type())).Inc()
	return c.NoContent(http.StatusNoContent)
}

// Update handles PUT /users/:id.
//
// @Summary      Update the shared fields of a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "User id"
// @Param        body  body      updateUserRequest  true  "User details"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.service.UpdateUser(c.Request().Context(), toUpdateUserInput(id, req)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id   path      int  true  "User id"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	deleted, err := h.service.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrUserNotFound
	}
	metrics.UsersDeletedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

// AssignManager handles POST /users/assign-manager.
//
// @Summary      Assign a manager to a client without one
// @Tags         relationships
// @Accept       json
// @Produce      json
// @Param        body  body      assignManagerRequest  true  "Client and manager ids"
// @Success      200   {boolean}  bool
// @Failure      400   {object}   errorResponse
// @Failure      409   {object}   errorResponse
// @Failure      500   {object}   errorResponse
// @Router       /users/assign-manager [post]
func (h *UserHandler) AssignManager(c echo.Context) error {
	var req assignManagerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	started := time.Now()
	_, err := h.service.AssignManager(c.Request().Context(), req.ClientID, req.ManagerID)
	metrics.ObserveRelationship("assign", started, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

// ReassignClientManager handles PUT /users/reassign-client-manager.
//
// @Summary      Move an assigned client to another manager
// @Tags         relationships
// @Accept       json
// @Produce      json
// @Param        body  body      reassignManagerRequest  true  "Client and new manager ids"
// @Success      200   {boolean}  bool
// @Failure      400   {object}   errorResponse
// @Failure      409   {object}   errorResponse
// @Failure      500   {object}   errorResponse
// @Router       /users/reassign-client-manager [put]
func (h *UserHandler) ReassignClientManager(c echo.Context) error {
	var req reassignManagerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	started := time.Now()
	_, err := h.service.ReassignClientManager(c.Request().Context(), req.ClientID, req.NewManagerID)
	metrics.ObserveRelationship("reassign", started, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id must be a positive integer")
	}
	return id, nil
}
