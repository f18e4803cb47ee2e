package handler

import (
	"guildmint/internal/adapter/http/middleware"
	"guildmint/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	NoteSvc        ports.NoteService
	RegistrySvc    ports.RegistryService
	IdentitySvc    ports.IdentityService
	LeaderboardSvc ports.LeaderboardService
	HashSvc        ports.HashService
	AdminKeyHash   string // argon2id hash; empty disables all admin routes
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/api/v1")

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	noteHandler := NewNoteHandler(deps.NoteSvc)
	guildHandler := NewGuildHandler(deps.IdentitySvc, deps.LeaderboardSvc)

	// --- Member-facing routes (called by the chat bot on behalf of users) ---
	ledger := v1.Group("/ledger")
	{
		ledger.POST("/transfer", ledgerHandler.Transfer)
		ledger.POST("/exchange", ledgerHandler.Exchange)
	}

	notes := v1.Group("/notes")
	{
		notes.POST("/issue", noteHandler.Issue)
		notes.POST("/redeem", noteHandler.Redeem)
	}

	v1.GET("/accounts/:externalId/balances", ledgerHandler.GetBalances)
	v1.GET("/groups/:groupId/leaderboard", guildHandler.Leaderboard)

	// --- Administrative routes (operator API key) ---
	adminAuth := middleware.AdminAuth(deps.HashSvc, deps.AdminKeyHash, deps.Logger)
	registryHandler := NewRegistryHandler(deps.RegistrySvc)

	admin := v1.Group("/admin", adminAuth)
	{
		admin.POST("/ledger/mint", ledgerHandler.Mint)
		admin.POST("/ledger/burn", ledgerHandler.Burn)

		admin.POST("/groups/:groupId/currencies", registryHandler.CreateCurrency)
		admin.PUT("/groups/:groupId/currencies/:currencyId/primary", registryHandler.SetPrimary)
		admin.PUT("/groups/:groupId/rates", registryHandler.SetRate)

		admin.POST("/guilds", guildHandler.Onboard)
		admin.POST("/guilds/:externalGuildId/sync", guildHandler.SyncMembers)
	}

	return r
}
