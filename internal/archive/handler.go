package archive

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/mut-lab/power-monitor/internal/core/errors"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
)

// Handler serves read access to the archived rollups.
type Handler struct {
	store  RollupStore
	parser *timewindow.Parser
}

// NewHandler creates the archive query handler.
func NewHandler(store RollupStore, parser *timewindow.Parser) *Handler {
	return &Handler{store: store, parser: parser}
}

// RegisterRoutes registers the archive API routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/archive/daily", h.HandleDailyRollups)
}

// HandleDailyRollups handles GET /v1/archive/daily?start=&end=
// Bounds use the same formats as the live range query. The archive has no
// span limit since reads come off an indexed local table.
func (h *Handler) HandleDailyRollups(c *gin.Context) {
	var params struct {
		Start string `form:"start" binding:"required"`
		End   string `form:"end" binding:"required"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParamsError,
			Message:   "start and end query parameters are required",
			Details:   err.Error(),
		})
		return
	}

	start, err := h.parser.Parse(params.Start, timewindow.RoleStart)
	if err != nil {
		writeArchiveError(c, err)
		return
	}
	end, err := h.parser.Parse(params.End, timewindow.RoleEnd)
	if err != nil {
		writeArchiveError(c, err)
		return
	}
	if !end.After(start) {
		writeArchiveError(c, timewindow.ErrInvalidWindow)
		return
	}

	rollups, err := h.store.QueryRange(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query archive",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rollups": rollups})
}

func writeArchiveError(c *gin.Context, err error) {
	errorType := httperr.HttpInvalidTimeFormatError
	if errors.Is(err, timewindow.ErrInvalidWindow) {
		errorType = httperr.HttpInvalidWindowError
	}
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: errorType,
		Message:   http.StatusText(http.StatusBadRequest),
		Details:   err.Error(),
	})
}
