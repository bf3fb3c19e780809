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

// BoardHandler exposes board and column endpoints
type BoardHandler struct {
	boardService service.BoardService
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(boardService service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// CreateBoard handles POST /boards
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	var req dto.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	board, err := h.boardService.CreateBoard(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, board)
}

// GetBoard handles GET /boards/:boardId
func (h *BoardHandler) GetBoard(c *gin.Context) {
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

	detail, err := h.boardService.GetBoardDetail(c.Request.Context(), userID, boardID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, detail)
}

// ListBoards handles GET /boards
func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	boards, err := h.boardService.ListBoards(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, boards)
}

// UpdateBoard handles PUT /boards/:boardId
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
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

	var req dto.UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	board, err := h.boardService.UpdateBoard(c.Request.Context(), userID, boardID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, board)
}

// DeleteBoard handles DELETE /boards/:boardId
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
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

	if err := h.boardService.DeleteBoard(c.Request.Context(), userID, boardID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateColumn handles POST /boards/:boardId/columns
func (h *BoardHandler) CreateColumn(c *gin.Context) {
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

	var req dto.CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	column, err := h.boardService.CreateColumn(c.Request.Context(), userID, boardID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, column)
}

// UpdateColumn handles PUT /columns/:columnId
func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	columnID, err := uuid.Parse(c.Param("columnId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid column id")
		return
	}

	var req dto.UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	column, err := h.boardService.UpdateColumn(c.Request.Context(), userID, columnID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, column)
}

// DeleteColumn handles DELETE /columns/:columnId
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}
	columnID, err := uuid.Parse(c.Param("columnId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid column id")
		return
	}

	if err := h.boardService.DeleteColumn(c.Request.Context(), userID, columnID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
