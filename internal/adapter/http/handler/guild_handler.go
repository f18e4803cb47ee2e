package handler

import (
	"net/http"
	"strconv"

	"guildmint/internal/adapter/http/dto"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"
	"guildmint/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GuildHandler handles guild onboarding, member sync and leaderboards.
type GuildHandler struct {
	identitySvc    ports.IdentityService
	leaderboardSvc ports.LeaderboardService
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(identitySvc ports.IdentityService, leaderboardSvc ports.LeaderboardService) *GuildHandler {
	return &GuildHandler{identitySvc: identitySvc, leaderboardSvc: leaderboardSvc}
}

// Onboard handles POST /api/v1/admin/guilds.
func (h *GuildHandler) Onboard(c *gin.Context) {
	var req dto.OnboardGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	guild, err := h.identitySvc.OnboardGuild(c.Request.Context(), req.ExternalGuildID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.GuildResponse{
		GuildID:         guild.ID.String(),
		ExternalGuildID: guild.ExternalID,
		SingleGroupID:   guild.SingleGroupID.String(),
	})
}

// SyncMembers handles POST /api/v1/admin/guilds/:externalGuildId/sync.
func (h *GuildHandler) SyncMembers(c *gin.Context) {
	externalGuildID := c.Param("externalGuildId")
	if externalGuildID == "" {
		response.Error(c, apperror.Validation("externalGuildId is required"))
		return
	}

	synced, err := h.identitySvc.SyncGuildMembers(c.Request.Context(), externalGuildID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MemberSyncResponse{
		ExternalGuildID: externalGuildID,
		MembersSynced:   synced,
	})
}

// Leaderboard handles GET /api/v1/groups/:groupId/leaderboard.
// Query params: currency (required, target currency UUID), limit (optional).
func (h *GuildHandler) Leaderboard(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		response.Error(c, apperror.Validation("groupId must be a UUID"))
		return
	}
	targetCurrencyID, err := uuid.Parse(c.Query("currency"))
	if err != nil {
		response.Error(c, apperror.Validation("currency must be a UUID"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
	}

	board, err := h.leaderboardSvc.Top(c.Request.Context(), groupID, targetCurrencyID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries := make([]dto.LeaderboardEntryResponse, len(board.Entries))
	for i, e := range board.Entries {
		entries[i] = dto.LeaderboardEntryResponse{
			Rank:             i + 1,
			AccountID:        e.AccountID.String(),
			ConvertedBalance: e.ConvertedBalance,
		}
	}
	response.OK(c, dto.LeaderboardResponse{
		TargetCurrencyID: board.TargetCurrency.ID.String(),
		Entries:          entries,
	})
}

// HealthCheck handles GET /health. Deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
