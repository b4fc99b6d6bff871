package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/trainup/backend/internal/database"
	"github.com/trainup/backend/internal/middleware"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/pkg/logger"
	"github.com/trainup/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	catalog  *services.RoleCatalog
	coordsvc *services.MembershipCoordinator
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigureBcrypt(6)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Group{},
		&models.Post{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	if err := database.SeedRoles(db); err != nil {
		t.Fatalf("failed seeding roles: %v", err)
	}

	catalog := services.NewRoleCatalog(db)
	if err := catalog.Warm(context.Background()); err != nil {
		t.Fatalf("failed warming role catalog: %v", err)
	}
	coordinator := services.NewMembershipCoordinator(db)

	authHandler := NewAuthHandler(db, catalog)
	usersHandler := NewUsersHandler(db, catalog, coordinator, nil)
	rolesHandler := NewRolesHandler(catalog)
	groupsHandler := NewGroupsHandler(coordinator)
	postsHandler := NewPostsHandler(db, nil)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 60 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/sign-up", authHandler.SignUp)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Patch("/password/change", authMiddleware.RequireAuth, authHandler.ChangePassword)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Post("/", middleware.RequireRoles(models.RoleAdmin), usersHandler.Create)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Post("/avatar", usersHandler.UploadAvatar)
	userRoutes.Delete("/avatar", usersHandler.DeleteAvatar)
	userRoutes.Post("/role", middleware.RequireRoles(models.RoleAdmin), usersHandler.AddRole)
	userRoutes.Delete("/:userId/role", middleware.RequireRoles(models.RoleAdmin), usersHandler.RemoveRole)
	userRoutes.Get("/:userId", usersHandler.Get)
	userRoutes.Delete("/:userId", usersHandler.Delete)

	roleRoutes := api.Group("/roles", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin))
	roleRoutes.Post("/", rolesHandler.Create)
	roleRoutes.Get("/", rolesHandler.List)
	roleRoutes.Get("/:value", rolesHandler.GetByValue)
	roleRoutes.Patch("/:value", rolesHandler.Update)
	roleRoutes.Delete("/:value", rolesHandler.Delete)

	groupRoutes := api.Group("/groups")
	groupRoutes.Post("/", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin), groupsHandler.Create)
	groupRoutes.Post("/user/:userId", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), groupsHandler.CreateWithTrainer)
	groupRoutes.Get("/training", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), groupsHandler.TrainingGroups)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Get("/:groupId", groupsHandler.Get)
	groupRoutes.Patch("/:groupId/join", authMiddleware.RequireAuth, groupsHandler.Join)
	groupRoutes.Patch("/:groupId/leave", authMiddleware.RequireAuth, groupsHandler.Leave)
	groupRoutes.Patch("/:groupId/trainer/leave", authMiddleware.RequireAuth, groupsHandler.LeaveByTrainer)
	groupRoutes.Delete("/:groupId", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin), groupsHandler.Delete)

	postRoutes := api.Group("/posts")
	postRoutes.Post("/", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), postsHandler.Create)
	postRoutes.Get("/group/:groupId", postsHandler.ListByGroup)
	postRoutes.Post("/:postId/video", authMiddleware.RequireAuth, postsHandler.UploadVideo)
	postRoutes.Delete("/:postId/video", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), postsHandler.DeleteVideo)
	postRoutes.Delete("/:postId", authMiddleware.RequireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleTrainer), postsHandler.Delete)

	return &testEnv{app: app, db: db, catalog: catalog, coordsvc: coordinator}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, tags ...models.RoleTag) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	if len(tags) == 0 {
		tags = []models.RoleTag{models.RoleUser}
	}

	var roles []models.Role
	for _, tag := range tags {
		var role models.Role
		if err := db.First(&role, "value = ?", tag).Error; err != nil {
			t.Fatalf("failed loading role %s: %v", tag, err)
		}
		roles = append(roles, role)
	}

	first := "Test"
	last := "User"
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    &first,
		LastName:     &last,
		Roles:        roles,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["message"].(string); got != expected {
		t.Fatalf("expected message %q, got %q", expected, got)
	}
}
