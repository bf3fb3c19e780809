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

// MemberHandler exposes board membership endpoints
type MemberHandler struct {
	memberService service.MemberService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(memberService service.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// InviteMember handles POST /boards/:boardId/members
func (h *MemberHandler) InviteMember(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	boardID, err := uuid.Parse(c.Param("boardId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid board id")
		return
	}

	var req dto.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	member, err := h.memberService.InviteMember(c.Request.Context(), userID, boardID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, member)
}

// ListMembers handles GET /boards/:boardId/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	boardID, err := uuid.Parse(c.Param("boardId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid board id")
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), userID, boardID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, members)
}

// RespondInvite handles POST /members/:memberId/respond
func (h *MemberHandler) RespondInvite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid member id")
		return
	}

	var req dto.RespondInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	member, err := h.memberService.RespondInvite(c.Request.Context(), userID, memberID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, member)
}

// UpdateMemberRole handles PUT /members/:memberId/role
func (h *MemberHandler) UpdateMemberRole(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid member id")
		return
	}

	var req dto.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	member, err := h.memberService.UpdateMemberRole(c.Request.Context(), userID, memberID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, member)
}

// RemoveMember handles DELETE /members/:memberId
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid member id")
		return
	}

	if err := h.memberService.RemoveMember(c.Request.Context(), userID, memberID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
