package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

// trackOpen handles GET /open
// @Summary Record an email open
// @Description Always answers with a 1x1 transparent GIF, whether or not the open was stored
// @Tags tracking
// @Produce image/gif
// @Param uid query string false "Recipient id" example:"42"
// @Success 200 {file} binary
// @Router /open [get]
func (h *Handler) trackOpen(c *gin.Context) {
	pixel := h.tracking.RecordOpen(c.Request.Context(), dto.OpenRequest{
		UID:       c.Query("uid"),
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, "image/gif", pixel)
}

// trackClick handles GET /click
// @Summary Record a link click
// @Description Redirects to url; a missing url is recorded and answered with 400
// @Tags tracking
// @Produce json
// @Param uid query string false "Recipient id" example:"42"
// @Param url query string true "Destination" example:"https://example.com"
// @Success 302
// @Failure 400 {object} dto.ErrorResponse
// @Router /click [get]
func (h *Handler) trackClick(c *gin.Context) {
	target, ok := h.tracking.RecordClick(c.Request.Context(), dto.ClickRequest{
		UID: c.Query("uid"),
		URL: c.Query("url"),
		IP:  clientIP(c),
	})
	if !ok {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "missing_url",
			Message: "No URL provided",
		})
		return
	}

	c.Redirect(http.StatusFound, target)
}
