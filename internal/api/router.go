package api

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/user-management/docs"
	"github.com/99minutos/user-management/internal/api/handler"
	"github.com/99minutos/user-management/internal/core/ports"
)

// Options configures the API routes.
type Options struct {
	Logger zerolog.Logger
	// Swagger serves the API docs under /swagger/.
	Swagger bool
}

// Register installs the validator and the error handler on e and mounts the
// user routes under /users.
func Register(e *echo.Echo, users ports.UserService, opts Options) {
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	userHandler := handler.NewUserHandler(users)
	userHandler.Register(e.Group("/users"))

	if opts.Swagger {
		docs.SwaggerInfo.BasePath = "/"
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
}
