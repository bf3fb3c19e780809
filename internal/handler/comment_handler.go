package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskflow/internal/dto"
	"taskflow/internal/middleware"
	"taskflow/internal/response"
	"taskflow/internal/service"
)

// CommentHandler exposes task discussion endpoints
type CommentHandler struct {
	commentService service.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CreateComment handles POST /tasks/:taskId/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid task id")
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), userID, taskID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, comment)
}

// ListComments handles GET /tasks/:taskId/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid task id")
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), userID, taskID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, comments)
}

// DeleteComment handles DELETE /comments/:commentId
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	commentID, err := uuid.Parse(c.Param("commentId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid comment id")
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
