package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"taskpanel/internal/auth"
	"taskpanel/internal/config"
	"taskpanel/internal/database"
	"taskpanel/internal/handler"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/middleware"
	"taskpanel/internal/repository"
	"taskpanel/internal/web"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
}

// Init connects to the database and Redis, brings the schema up to date and
// builds the router.
func Init(cfg *config.Config) (*Server, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, cfg.DBDriver, database.DefaultMigrationConfig(cfg.DBName)); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return New(cfg, db, ConnectRedis(cfg))
}

// ConnectRedis returns nil when Redis is not configured or unreachable;
// revoked tokens are then kept in process memory.
func ConnectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("⚠️  REDIS_ADDR not set, using in-memory token denylist")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis unavailable: %v (using in-memory token denylist)", err)
		_ = client.Close()
		return nil
	}
	log.Println("✅ Redis connected")
	return client
}

// New wires repositories, handlers and routes over an open database. rdb may
// be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryWithLog())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if rdb != nil {
		denylist = auth.NewRedisDenylist(rdb)
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	guard := lifecycle.NewGuard(time.Now)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userRepo, issuer, denylist)
	taskHandler := handler.NewTaskAPIHandler(taskRepo, guard)
	panelHandler := handler.NewPanelHandler(userRepo, taskRepo, issuer, denylist, guard)

	loginLimit := middleware.RateLimiter(middleware.PerMinute(cfg.RateLimitPerMin), cfg.RateLimitBurst)

	s := &Server{Engine: r, DB: db, Redis: rdb, Config: cfg}

	r.GET("/health", s.healthHandler)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/panel/login") })

	api := r.Group("/api")
	api.POST("/auth/login", loginLimit, authHandler.Login)

	// Protected routes - require a bearer token of an active user
	protected := api.Group("/")
	protected.Use(middleware.JWTAuthMiddleware(issuer, denylist), middleware.PrincipalMiddleware(userRepo))
	{
		protected.POST("/auth/logout", authHandler.Logout)

		protected.GET("/tasks", taskHandler.GetOwn)
		protected.PUT("/tasks/:id", taskHandler.Update)
		protected.PATCH("/tasks/:id", taskHandler.Update)
		protected.GET("/tasks/:id/report", taskHandler.Report)
	}

	panel := r.Group("/panel")
	panel.Use(middleware.PanelSession(issuer, denylist, userRepo))
	{
		panel.GET("/login", panelHandler.LoginPage)
		panel.POST("/login", loginLimit, panelHandler.Login)
		panel.POST("/logout", panelHandler.Logout)

		panel.GET("/super/dashboard", panelHandler.SuperDashboard)
		panel.GET("/admin/dashboard", panelHandler.AdminDashboard)

		panel.GET("/users", panelHandler.ListUsers)
		panel.GET("/users/create", panelHandler.CreateUserPage)
		panel.POST("/users/create", panelHandler.CreateUser)
		panel.GET("/users/:id/edit", panelHandler.EditUserPage)
		panel.POST("/users/:id/edit", panelHandler.EditUser)
		panel.GET("/users/:id/delete", panelHandler.DeleteUserPage)
		panel.POST("/users/:id/delete", panelHandler.DeleteUser)

		panel.GET("/tasks", panelHandler.ListTasks)
		panel.GET("/tasks/create", panelHandler.CreateTaskPage)
		panel.POST("/tasks/create", panelHandler.CreateTask)
		panel.GET("/tasks/export", panelHandler.ExportCSV)
		panel.GET("/tasks/export.xlsx", panelHandler.ExportXLSX)
		panel.GET("/tasks/:id/edit", panelHandler.EditTaskPage)
		panel.POST("/tasks/:id/edit", panelHandler.EditTask)
		panel.GET("/tasks/:id/delete", panelHandler.DeleteTaskPage)
		panel.POST("/tasks/:id/delete", panelHandler.DeleteTask)
		panel.GET("/tasks/:id/report", panelHandler.TaskReport)

		panel.GET("/user/tasks", panelHandler.UserTasks)
		panel.GET("/user/tasks/:id/complete", panelHandler.CompleteTaskPage)
		panel.POST("/user/tasks/:id/complete", panelHandler.CompleteTask)
	}

	return s, nil
}

func (s *Server) healthHandler(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  "up",
	}

	if err := database.Ping(s.DB); err != nil {
		health["status"] = "unhealthy"
		health["database"] = "down"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	if s.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			health["redis"] = "down"
		} else {
			health["redis"] = "up"
		}
	}

	c.JSON(http.StatusOK, health)
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	s.Close()
	log.Println("✅ Server exited properly")
}

// Close releases the database and Redis connections.
func (s *Server) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("⚠️  Error closing Redis: %v", err)
		}
	}
	database.Close(s.DB)
}
