package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"crm-console/internal/authz"
	"crm-console/internal/config"
	"crm-console/internal/handler"
	"crm-console/internal/menu"
	"crm-console/internal/model"
	"crm-console/internal/organization"
	"crm-console/internal/repository"
	"crm-console/internal/service"
	"crm-console/internal/session"
	"crm-console/internal/ws"
	"crm-console/pkg/database"
	"crm-console/pkg/jwt"
	applogger "crm-console/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := applogger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	// Auto Migrate (use a dedicated migration tool in production)
	if err := db.AutoMigrate(&model.Permission{}, &model.Role{}, &model.Organization{}, &model.User{}); err != nil {
		zlog.Fatal("auto migrate", zap.Error(err))
	}

	// 3. Seed default permissions, roles, organization and admin user
	if cfg.SeedDefaults {
		if err := seedDefaults(ctx, db, cfg, zlog); err != nil {
			zlog.Warn("seeding defaults failed", zap.Error(err))
		}
	}

	// 4. Navigation
	items, err := loadMenu(cfg)
	if err != nil {
		zlog.Fatal("menu", zap.Error(err))
	}

	// 5. Organization selection persistence
	persisters := organization.MemoryFactory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		persisters = organization.RedisFactory(rdb, cfg.OrganizationKeyPrefix)
		zlog.Info("organization selection persisted in redis", zap.String("addr", cfg.RedisAddr))
	}

	// 6. WebSocket Hub
	wsHub := ws.NewHub(zlog.Named("ws"))
	go wsHub.Run(ctx)

	// 7. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	permissionRepo := repository.NewPermissionRepo(db)
	orgRepo := repository.NewOrganizationRepo(db)

	issuer := jwt.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	sessions := session.NewManager(userRepo, orgRepo, persisters, zlog.Named("session"))
	go sessions.RunSweeper(ctx, cfg.SessionSweepInterval)

	authService := service.NewAuthService(userRepo, issuer, sessions, zlog.Named("auth"))
	userService := service.NewUserService(userRepo, roleRepo, sessions, zlog.Named("users"))

	// 8. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:               "CRM Console v1.0",
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler.Register(app, handler.Deps{
		Sessions:    sessions,
		Issuer:      issuer,
		RestoreWait: cfg.SessionRestoreWait,
		AuthService: authService,
		UserService: userService,
		Roles:       roleRepo,
		Permissions: permissionRepo,
		Menu:        items,
		Hub:         wsHub,
		Logger:      zlog.Named("ws"),
	})

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exited", zap.Int("live_sessions", sessions.Len()))
}

func loadMenu(cfg *config.Config) ([]authz.MenuItem, error) {
	if cfg.MenuFile != "" {
		return menu.Load(cfg.MenuFile)
	}
	return menu.Default()
}

// seedDefaults creates default permissions, roles, an organization and the
// super user if they don't exist
func seedDefaults(ctx context.Context, db *gorm.DB, cfg *config.Config, zlog *zap.Logger) error {
	permissionRepo := repository.NewPermissionRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	userRepo := repository.NewUserRepo(db)
	orgRepo := repository.NewOrganizationRepo(db)

	// 1. Seed permissions first
	if err := permissionRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	// 3. Assign permissions to roles that have none yet
	all, err := permissionRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	for _, defaultRole := range model.DefaultRoles {
		role, err := roleRepo.FindByID(ctx, defaultRole.ID)
		if err != nil {
			return err
		}
		if len(role.Permissions) > 0 {
			continue
		}
		picked := all
		if role.ID != model.SuperRoleID {
			picked = model.DefaultRolePermissions(role.ID, all)
		}
		if err := roleRepo.ReplacePermissions(ctx, role.ID, picked); err != nil {
			return err
		}
		zlog.Info("role permissions seeded", zap.String("role", role.Name), zap.Int("permissions", len(picked)))
	}

	// 4. A first organization so the console is usable
	orgs, err := orgRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		hq := &model.Organization{Code: "HQ", Name: "Headquarters", IsActive: true}
		if err := orgRepo.Create(ctx, hq); err != nil {
			return fmt.Errorf("seed organization: %w", err)
		}
		zlog.Info("organization seeded", zap.String("code", hq.Code))
	}

	// 5. The super user holds the fixed id and the super role
	if _, err := userRepo.FindByID(ctx, model.SuperUserID); errors.Is(err, repository.ErrUserNotFound) {
		superRole, err := roleRepo.FindByID(ctx, model.SuperRoleID)
		if err != nil {
			return err
		}
		admin := &model.User{
			Email:    cfg.AdminEmail,
			FullName: "Super Administrator",
			IsActive: true,
			Roles:    []model.Role{*superRole},
		}
		admin.ID = model.SuperUserID
		if err := admin.SetPassword(cfg.AdminPassword); err != nil {
			return err
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		zlog.Info("super user created", zap.String("email", admin.Email))
	} else if err != nil {
		return err
	}

	// Rows inserted with explicit ids leave the serial sequences behind.
	for _, table := range []string{"roles", "users"} {
		stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("sync %s sequence: %w", table, err)
		}
	}
	return nil
}
