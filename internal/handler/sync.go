package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/service"
)

func listRequest(c *gin.Context) dto.ListEventsRequest {
	return dto.ListEventsRequest{
		Limit: c.Query("limit"),
		All:   strings.EqualFold(c.Query("all"), "true"),
	}
}

// listOpens handles GET /api/opens
// @Summary List opens
// @Description Unsynced opens oldest first, or with all=true every open newest first
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum rows (default 1000)"
// @Param all query bool false "Ignore sync state"
// @Success 200 {object} dto.ListOpensResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/opens [get]
func (h *Handler) listOpens(c *gin.Context) {
	req := listRequest(c)

	response, err := h.sync.ListOpens(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("Failed to list opens",
			zap.Error(err),
			zap.String("limit", req.Limit),
			zap.Bool("all", req.All))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// listClicks handles GET /api/clicks
// @Summary List clicks
// @Description Unsynced clicks oldest first, or with all=true every click newest first
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum rows (default 1000)"
// @Param all query bool false "Ignore sync state"
// @Success 200 {object} dto.ListClicksResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/clicks [get]
func (h *Handler) listClicks(c *gin.Context) {
	req := listRequest(c)

	response, err := h.sync.ListClicks(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("Failed to list clicks",
			zap.Error(err),
			zap.String("limit", req.Limit),
			zap.Bool("all", req.All))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// markSynced handles POST /api/mark_synced
// @Summary Acknowledge synced events
// @Description Flip the synced flag for the given ids. Redelivering an acknowledgment is harmless.
// @Tags sync
// @Accept json
// @Produce json
// @Param ack body dto.MarkSyncedRequest true "Ids to acknowledge"
// @Success 200 {object} dto.MarkSyncedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/mark_synced [post]
func (h *Handler) markSynced(c *gin.Context) {
	var req dto.MarkSyncedRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid acknowledgment request", zap.Error(err))
		h.writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}

	response, err := h.sync.MarkSynced(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to mark events as synced",
			zap.Error(err),
			zap.Int("open_ids", len(req.OpenIDs)),
			zap.Int("click_ids", len(req.ClickIDs)))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
