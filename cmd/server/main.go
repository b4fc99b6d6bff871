package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/trainup/backend/internal/config"
	"github.com/trainup/backend/internal/database"
	"github.com/trainup/backend/internal/handlers"
	"github.com/trainup/backend/internal/middleware"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/internal/storage"
	"github.com/trainup/backend/pkg/logger"
	"github.com/trainup/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureBcrypt(cfg.Auth.BcryptCost)

	db, err := database.Connect(cfg.DB, cfg.Auth)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	roleCatalog := services.NewRoleCatalog(db)
	if err := roleCatalog.Warm(context.Background()); err != nil {
		log.Fatalf("failed warming role catalog: %v", err)
	}
	membership := services.NewMembershipCoordinator(db)

	authHandler := handlers.NewAuthHandler(db, roleCatalog)
	usersHandler := handlers.NewUsersHandler(db, roleCatalog, membership, storageClient)
	rolesHandler := handlers.NewRolesHandler(roleCatalog)
	groupsHandler := handlers.NewGroupsHandler(membership)
	postsHandler := handlers.NewPostsHandler(db, storageClient)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
