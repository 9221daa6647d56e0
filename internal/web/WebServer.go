package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/log"
	"github.com/mflix-go/webserver/internal/services"
)

const localUserID = "userID"

type WebServer struct {
	app            *fiber.App
	accountService *services.AccountService
	authLimiter    *RateLimiter
	logger         *log.Logger
}

// NewWebServer builds the Fiber app and registers every route. authLimiter throttles register and login; nil
// disables throttling.
func NewWebServer(accountService *services.AccountService, authLimiter *RateLimiter, logger *log.Logger) *WebServer {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type",
	}))

	s := &WebServer{
		app:            app,
		accountService: accountService,
		authLimiter:    authLimiter,
		logger:         logger,
	}
	s.SetupRoutes()
	return s
}

func (s *WebServer) Run(addr string) error {
	s.logger.Infof("Web server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *WebServer) SetupRoutes() {
	s.app.Get("/health", s.healthCheck)

	api := s.app.Group("/api/v1/user")
	auth := []fiber.Handler{}
	if s.authLimiter != nil {
		auth = append(auth, s.authLimiter.Handler())
	}
	api.Post("/register", append(auth, s.registerUser)...)
	api.Post("/login", append(auth, s.loginUser)...)
	api.Post("/logout", s.tokenRequired(s.logoutUser))
	api.Get("/me", s.tokenRequired(s.getProfile))
	api.Put("/preferences", s.tokenRequired(s.updatePreferences))
	api.Delete("/", s.tokenRequired(s.deleteUser))
}

func (s *WebServer) tokenRequired(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			s.logger.Info("Missing Authorization header")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Info("Invalid Authorization header format. Expected: `Bearer <token>`")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Authorization header format. Expected: `Bearer <token>`"})
		}

		userID, err := s.accountService.ValidateSession(c.UserContext(), parts[1])
		if err != nil {
			s.logger.Infow("Session validation failed", "error", err)
			return s.errorResponse(c, err)
		}

		c.Locals(localUserID, userID)
		return handler(c)
	}
}

func (s *WebServer) registerUser(c *fiber.Ctx) error {
	var req common.RegisterRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Register request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.accountService.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password); err != nil {
		s.logger.Info("User registration failed:", err.Error())
		return s.errorResponse(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "User created"})
}

func (s *WebServer) loginUser(c *fiber.Ctx) error {
	var req common.LoginRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Login request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token, err := s.accountService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		s.logger.Info("User login failed:", err.Error())
		return s.errorResponse(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"jwtToken": token})
}

func (s *WebServer) logoutUser(c *fiber.Ctx) error {
	if err := s.accountService.LogoutUser(c.UserContext(), userIDFrom(c)); err != nil {
		return s.errorResponse(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "User logged out"})
}

func (s *WebServer) getProfile(c *fiber.Ctx) error {
	profile, err := s.accountService.GetProfile(c.UserContext(), userIDFrom(c))
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": profile})
}

func (s *WebServer) updatePreferences(c *fiber.Ctx) error {
	var req common.UpdatePreferencesRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Update preferences request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.accountService.UpdatePreferences(c.UserContext(), userIDFrom(c), req.Preferences); err != nil {
		return s.errorResponse(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Preferences updated"})
}

func (s *WebServer) deleteUser(c *fiber.Ctx) error {
	var req common.DeleteUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Delete user request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.accountService.DeleteAccount(c.UserContext(), userIDFrom(c), req.Password); err != nil {
		return s.errorResponse(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "User deleted"})
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	return c.SendString("OK")
}

func userIDFrom(c *fiber.Ctx) string {
	userID, _ := c.Locals(localUserID).(string)
	return userID
}

// errorResponse maps service and storage errors onto HTTP statuses. Unclassified errors are logged and hidden
// from the client.
func (s *WebServer) errorResponse(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrSessionRevoked):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrDuplicateKey):
		status, message = http.StatusConflict, err.Error()
	default:
		s.logger.Errorw("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
