package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/metrics"
	"github.com/weiawesome/wes-cook-live/internal/service"
	"github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/middleware"
	"github.com/weiawesome/wes-cook-live/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// NotificationQuery backs the notification endpoints.
type NotificationQuery interface {
	List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*domain.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Handler handles HTTP requests of the cooking API.
type Handler struct {
	cooking        service.CookingService
	recipes        service.RecipeService
	users          service.UserService
	notifications  NotificationQuery
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	cooking service.CookingService,
	recipes service.RecipeService,
	users service.UserService,
	notifications NotificationQuery,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		cooking:        cooking,
		recipes:        recipes,
		users:          users,
		notifications:  notifications,
		authMiddleware: authMiddleware,
	}
}

type listNotificationsQuery struct {
	Unread   bool `form:"unread"`
	Page     int  `form:"page" binding:"omitempty,min=1"`
	PageSize int  `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type listRecipesQuery struct {
	ChefID   string `form:"chef_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type limitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(h.authMiddleware.RequireAuth())
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
			notifications.POST("/:id/read", h.MarkNotificationRead)
		}

		api.GET("/recipes", h.ListRecipes)
		api.POST("/recipes", middleware.RequireRole(domain.RoleChef), h.CreateRecipe)

		recipes := api.Group("/recipes/:id")
		{
			recipes.GET("", h.GetRecipe)
			recipes.PUT("", h.UpdateRecipe)
			recipes.DELETE("", h.DeleteRecipe)
			recipes.GET("/chat", h.ChatHistory)
			recipes.GET("/steps", h.StepHistory)
			recipes.POST("/like", h.ToggleLike)
			recipes.GET("/comments", h.ListComments)
			recipes.POST("/comments", h.AddComment)
			recipes.DELETE("/comments/:commentId", h.DeleteComment)
			recipes.POST("/session/start", h.StartSession)
			recipes.POST("/session/end", h.EndSession)
			recipes.GET("/session/archives", h.ListArchives)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("/active", h.ActiveRooms)
			rooms.GET("/:id/members", h.RoomMembers)
		}

		api.POST("/users/me/chef-request", h.RequestChef)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/chef-requests", h.ListChefRequests)
			admin.POST("/users/:id/approve-chef", h.ApproveChef)
			admin.POST("/users/:id/reject-chef", h.RejectChef)
		}
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListNotifications lists the caller's notifications, newest first.
func (h *Handler) ListNotifications(c *gin.Context) {
	var q listNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	items, total, err := h.notifications.List(c.Request.Context(), middleware.GetUserID(c), q.Unread, q.Page, q.PageSize)
	if err != nil {
		h.fail(c, err, "failed to list notifications")
		return
	}
	response.Paginated(c, items, total, q.Page, q.PageSize)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		h.fail(c, err, "failed to mark notification read")
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "read": true})
}

// ListRecipes pages recipes newest first, optionally for one chef.
func (h *Handler) ListRecipes(c *gin.Context) {
	var q listRecipesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	items, total, err := h.recipes.ListRecipes(c.Request.Context(), q.ChefID, q.Page, q.PageSize)
	if err != nil {
		h.fail(c, err, "failed to list recipes")
		return
	}
	response.Paginated(c, items, total, q.Page, q.PageSize)
}

func (h *Handler) CreateRecipe(c *gin.Context) {
	var req domain.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err, "failed to create recipe")
		return
	}
	response.Created(c, recipe)
}

func (h *Handler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch recipe")
		return
	}
	response.Success(c, recipe)
}

func (h *Handler) UpdateRecipe(c *gin.Context) {
	var req domain.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "failed to update recipe")
		return
	}
	response.Success(c, recipe)
}

func (h *Handler) DeleteRecipe(c *gin.Context) {
	if err := h.recipes.DeleteRecipe(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete recipe")
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "deleted": true})
}

// ChatHistory returns the latest chat of a recipe room, oldest first.
func (h *Handler) ChatHistory(c *gin.Context) {
	limit, ok := bindLimit(c)
	if !ok {
		return
	}
	msgs, err := h.cooking.ChatHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err, "failed to fetch chat history")
		return
	}
	response.Success(c, msgs)
}

// StepHistory returns the latest cooking steps of a recipe room, oldest first.
func (h *Handler) StepHistory(c *gin.Context) {
	limit, ok := bindLimit(c)
	if !ok {
		return
	}
	steps, err := h.cooking.StepHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err, "failed to fetch cooking steps")
		return
	}
	response.Success(c, steps)
}

func (h *Handler) ToggleLike(c *gin.Context) {
	result, err := h.recipes.ToggleLike(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to toggle like")
		return
	}
	response.Success(c, result)
}

func (h *Handler) AddComment(c *gin.Context) {
	var req domain.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.recipes.AddComment(c.Request.Context(), actor(c), c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, err, "failed to add comment")
		return
	}
	response.Created(c, comment)
}

func (h *Handler) ListComments(c *gin.Context) {
	limit, ok := bindLimit(c)
	if !ok {
		return
	}
	comments, err := h.recipes.ListComments(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err, "failed to list comments")
		return
	}
	response.Success(c, comments)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.recipes.DeleteComment(c.Request.Context(), actor(c), c.Param("id"), c.Param("commentId")); err != nil {
		h.fail(c, err, "failed to delete comment")
		return
	}
	response.Success(c, gin.H{"id": c.Param("commentId"), "deleted": true})
}

func (h *Handler) StartSession(c *gin.Context) {
	recipe, err := h.recipes.StartSession(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to start session")
		return
	}
	response.Success(c, recipe)
}

func (h *Handler) EndSession(c *gin.Context) {
	recipe, err := h.recipes.EndSession(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to end session")
		return
	}
	response.Success(c, recipe)
}

// ListArchives lists the stored transcripts of ended sessions.
func (h *Handler) ListArchives(c *gin.Context) {
	archives, err := h.recipes.ListArchives(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list session archives")
		return
	}
	response.Success(c, archives)
}

// ActiveRooms lists rooms with live members and their member counts.
func (h *Handler) ActiveRooms(c *gin.Context) {
	response.Success(c, h.cooking.ActiveRooms(c.Request.Context()))
}

// RoomMembers lists the members of a room on this instance.
func (h *Handler) RoomMembers(c *gin.Context) {
	response.Success(c, gin.H{"recipe_id": c.Param("id"), "members": h.cooking.Members(c.Param("id"))})
}

func (h *Handler) RequestChef(c *gin.Context) {
	user, err := h.users.RequestChef(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to request chef role")
		return
	}
	response.Success(c, user)
}

func (h *Handler) ListChefRequests(c *gin.Context) {
	users, err := h.users.ListChefRequests(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list chef requests")
		return
	}
	response.Success(c, users)
}

func (h *Handler) ApproveChef(c *gin.Context) {
	user, err := h.users.ApproveChef(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to approve chef")
		return
	}
	response.Success(c, user)
}

func (h *Handler) RejectChef(c *gin.Context) {
	user, err := h.users.RejectChef(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to reject chef")
		return
	}
	response.Success(c, user)
}

// fail maps domain errors onto the response envelope.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
	}
}

func actor(c *gin.Context) domain.Identity {
	return domain.Identity{
		UserID:   middleware.GetUserID(c),
		Username: middleware.GetUsername(c),
		Email:    middleware.GetEmail(c),
		Role:     middleware.GetRole(c),
	}
}

func bindLimit(c *gin.Context) (int, bool) {
	var q limitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "limit must be a positive integer")
		return 0, false
	}
	switch {
	case q.Limit == 0:
		return defaultLimit, true
	case q.Limit > maxLimit:
		return maxLimit, true
	}
	return q.Limit, true
}
