package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/c6lbmb/borrowmybike-sub000/internal/audit"
	"github.com/c6lbmb/borrowmybike-sub000/internal/auth"
	"github.com/c6lbmb/borrowmybike-sub000/internal/bike"
	"github.com/c6lbmb/borrowmybike-sub000/internal/booking"
	"github.com/c6lbmb/borrowmybike-sub000/internal/config"
	"github.com/c6lbmb/borrowmybike-sub000/internal/credit"
	"github.com/c6lbmb/borrowmybike-sub000/internal/email"
	"github.com/c6lbmb/borrowmybike-sub000/internal/gateway"
	"github.com/c6lbmb/borrowmybike-sub000/internal/ledger"
	"github.com/c6lbmb/borrowmybike-sub000/internal/settlement"
	"github.com/c6lbmb/borrowmybike-sub000/internal/user"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(db)
	bikeRepo := bike.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	paymentRepo := ledger.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	auditLog := audit.NewLog(db)
	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)

	userHandler := user.NewHandler(user.NewService(userRepo, cfg.JWTSecret))
	bikeHandler := bike.NewHandler(bikeRepo)
	bookingHandler := booking.NewHandler(
		booking.NewService(bookingRepo, paymentRepo, gatewayClient, creditRepo, userRepo, emailService))
	settlementService := settlement.NewService(bookingRepo, paymentRepo, creditRepo, gatewayClient, auditLog, userRepo, emailService)
	settlementHandler := settlement.NewHandler(settlementService, bookingRepo, paymentRepo)
	creditHandler := credit.NewHandler(creditRepo)
	webhookHandler := gateway.NewWebhookHandler(cfg.GatewayWebhookSecret, bookingRepo, paymentRepo)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	router.POST("/webhooks/payment", webhookHandler.Handle)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/me/bikes", auth.RequireRole(auth.RoleOwner), bikeHandler.ListMine)
		protected.GET("/me/credits", creditHandler.ListMine)

		protected.GET("/bikes", bikeHandler.List)
		protected.POST("/bikes", auth.RequireRole(auth.RoleOwner), bikeHandler.Register)
		protected.GET("/bikes/:bikeID", bikeHandler.Get)
		protected.POST("/bikes/:bikeID/book", auth.RequireRole(auth.RoleBorrower), bookingHandler.Create)

		protected.GET("/bookings", bookingHandler.ListMine)
		protected.GET("/bookings/:bookingID", bookingHandler.Get)
		protected.POST("/bookings/:bookingID/accept", bookingHandler.Accept)
		protected.POST("/bookings/:bookingID/check-in", bookingHandler.CheckIn)
		protected.POST("/bookings/:bookingID/complete", bookingHandler.ConfirmComplete)
		protected.POST("/bookings/:bookingID/force-majeure", bookingHandler.AgreeForceMajeure)
		protected.POST("/bookings/:bookingID/deposit-choice", bookingHandler.SetDepositChoice)
		protected.POST("/bookings/:bookingID/cancel", settlementHandler.Cancel)
		protected.POST("/bookings/:bookingID/no-show", settlementHandler.ClaimNoShow)
		protected.POST("/bookings/:bookingID/settle", settlementHandler.Settle)
		protected.GET("/bookings/:bookingID/ledger", settlementHandler.ListLedger)
	}

	adminMiddleware := auth.RequireRole(auth.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.GET("/reviews", settlementHandler.ListReviews)
		admin.POST("/bookings/:bookingID/review", settlementHandler.FlagReview)
		admin.POST("/bookings/:bookingID/settle", settlementHandler.Settle)
		admin.GET("/bookings/:bookingID/ledger", settlementHandler.ListLedger)
		admin.GET("/bookings/:bookingID/audit", auditHandler(auditLog))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
