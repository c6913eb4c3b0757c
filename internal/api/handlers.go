package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sevensons/internal/models"
	"sevensons/internal/orchestrator"
	"sevensons/internal/registry"
	"sevensons/internal/worker"
)

// RoundDispatcher runs one orchestration round, serialized per session.
type RoundDispatcher interface {
	Dispatch(ctx context.Context, req orchestrator.RoundRequest) ([]models.ReplyOutcome, error)
}

// Handler wires HTTP routes to the role registry, conversation store, and
// round dispatcher.
type Handler struct {
	registry *registry.Registry
	store    ConversationStore
	rounds   RoundDispatcher
}

// ConversationStore is the slice of the store the handlers need.
type ConversationStore interface {
	History(ctx context.Context, roleID int64, sessionID string) []models.ConversationMessage
	Snippets(ctx context.Context, roleID int64, sessionID string) []models.MemorySnippet
	Summary(ctx context.Context, roleID int64, sessionID string) string
	Clear(ctx context.Context, roleID int64, sessionID string)
}

// NewHandler constructs a Handler instance.
func NewHandler(reg *registry.Registry, store ConversationStore, rounds RoundDispatcher) *Handler {
	return &Handler{
		registry: reg,
		store:    store,
		rounds:   rounds,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/chat", h.chat)
	api.POST("/group-chat", h.groupChat)
	api.GET("/roles", h.listRoles)
	api.POST("/roles", h.createRole)
	api.PUT("/roles/:name", h.updateRole)
	api.GET("/conversations/:name/:session_id", h.getConversation)
	api.DELETE("/conversations/:name/:session_id", h.clearConversation)
}

type chatRequest struct {
	Message   string `json:"message"`
	RoleName  string `json:"roleName"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// chat is the single-role path: a one-participant round.
func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.Message == "" || req.RoleName == "" || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message, roleName and sessionId are required"})
		return
	}

	role, err := h.registry.GetByName(c.Request.Context(), req.RoleName)
	if err != nil {
		if errors.Is(err, registry.ErrRoleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("role %s not found", req.RoleName)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	outcomes, err := h.rounds.Dispatch(c.Request.Context(), orchestrator.RoundRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Roles:     []models.Role{*role},
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "session is busy, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	reply := outcomes[0]
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"content":   reply.Content,
			"role":      reply.RoleName,
			"timestamp": reply.Timestamp,
			"sessionId": req.SessionID,
		},
	})
}

type groupChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// groupChat fans one message out to every active role.
func (h *Handler) groupChat(c *gin.Context) {
	var req groupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.Message == "" || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message and sessionId are required"})
		return
	}

	roles, err := h.registry.ListParticipants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(roles) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "no active roles available"})
		return
	}

	outcomes, err := h.rounds.Dispatch(c.Request.Context(), orchestrator.RoundRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Roles:     roles,
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "session is busy, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	aiResponses := make([]gin.H, 0, len(outcomes))
	for _, out := range outcomes {
		avatar := out.AvatarURL
		if avatar == "" {
			avatar = "🤖"
		}
		aiResponses = append(aiResponses, gin.H{
			"id":        replyID(),
			"sender":    out.RoleName,
			"content":   out.Content,
			"timestamp": out.Timestamp,
			"isUser":    false,
			"avatar":    avatar,
			"delay":     out.DelayMS,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"aiResponses": aiResponses},
	})
}

func (h *Handler) listRoles(c *gin.Context) {
	roles, err := h.registry.ListParticipants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if roles == nil {
		roles = make([]models.Role, 0)
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *Handler) createRole(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(role.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role name is required"})
		return
	}
	if _, err := h.registry.GetByName(c.Request.Context(), role.Name); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "role already exists"})
		return
	}
	created, err := h.registry.Create(c.Request.Context(), role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateRole(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	updated, err := h.registry.Update(c.Request.Context(), c.Param("name"), role)
	if err != nil {
		if errors.Is(err, registry.ErrRoleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) getConversation(c *gin.Context) {
	role, sessionID, ok := h.conversationKey(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	messages := h.store.History(ctx, role.ID, sessionID)
	if messages == nil {
		messages = make([]models.ConversationMessage, 0)
	}
	snippets := h.store.Snippets(ctx, role.ID, sessionID)
	if snippets == nil {
		snippets = make([]models.MemorySnippet, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"messages":            messages,
			"memorySnippets":      snippets,
			"conversationSummary": h.store.Summary(ctx, role.ID, sessionID),
		},
	})
}

func (h *Handler) clearConversation(c *gin.Context) {
	role, sessionID, ok := h.conversationKey(c)
	if !ok {
		return
	}
	h.store.Clear(c.Request.Context(), role.ID, sessionID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) conversationKey(c *gin.Context) (*models.Role, string, bool) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return nil, "", false
	}
	role, err := h.registry.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, registry.ErrRoleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
			return nil, "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return role, sessionID, true
}

// replyID mints a client-facing message id; uniqueness matters only within
// one response payload.
func replyID() string {
	return fmt.Sprintf("ai-%d-%06x", time.Now().UnixMilli(), rand.Intn(1<<24))
}
