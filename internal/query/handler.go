package query

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httperr "github.com/mut-lab/power-monitor/internal/core/errors"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
	"github.com/mut-lab/power-monitor/internal/source"
)

// RegisterRoutes registers all query API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/records/latest", s.HandleLatestRecords)
	r.GET("/v1/summary", s.HandleSummary)
	r.GET("/v1/summary/window/:kind", s.HandleWindowSummary)
	r.GET("/v1/summary/range", s.HandleRangeSummary)
	r.GET("/v1/summary/half-hourly", s.HandleHalfHourly)
	r.GET("/v1/summary/daily-stats", s.HandleDailyStats)
}

// HandleLatestRecords handles GET /v1/records/latest?n=
func (s *Service) HandleLatestRecords(c *gin.Context) {
	limit, ok := s.bindLimit(c)
	if !ok {
		return
	}

	records, err := s.LatestRecords(c.Request.Context(), limit)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// HandleSummary handles GET /v1/summary?n=
func (s *Service) HandleSummary(c *gin.Context) {
	limit, ok := s.bindLimit(c)
	if !ok {
		return
	}

	resp, err := s.Summary(c.Request.Context(), limit)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWindowSummary handles GET /v1/summary/window/:kind
func (s *Service) HandleWindowSummary(c *gin.Context) {
	kind := timewindow.Kind(c.Param("kind"))

	resp, err := s.WindowSummary(c.Request.Context(), kind)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRangeSummary handles GET /v1/summary/range?start=&end=
func (s *Service) HandleRangeSummary(c *gin.Context) {
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

	resp, err := s.RangeSummary(c.Request.Context(), params.Start, params.End)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHalfHourly handles GET /v1/summary/half-hourly?reference=
func (s *Service) HandleHalfHourly(c *gin.Context) {
	resp, err := s.HalfHourly(c.Request.Context(), c.Query("reference"))
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDailyStats handles GET /v1/summary/daily-stats
func (s *Service) HandleDailyStats(c *gin.Context) {
	resp, err := s.DailyStats(c.Request.Context())
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindLimit parses the optional n parameter. An absent n means "use the
// default"; an explicit n must be at least 1, so a literal 0 is rejected
// here rather than conflated with absence. Upper-bound validation happens
// in the service.
func (s *Service) bindLimit(c *gin.Context) (int, bool) {
	raw := c.Query("n")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidLimitError,
			Message:   "n must be an integer >= 1",
			Details:   gin.H{"n": raw},
		})
		return 0, false
	}
	return limit, true
}

// writeQueryError maps core validation sentinels to 400, upstream failures
// to 502 and everything else to 500.
func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, timewindow.ErrInvalidTimeFormat):
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidTimeFormatError, err)
	case errors.Is(err, timewindow.ErrInvalidWindow):
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidWindowError, err)
	case errors.Is(err, timewindow.ErrWindowTooLarge):
		writeError(c, http.StatusBadRequest, httperr.HttpWindowTooLargeError, err)
	case errors.Is(err, timewindow.ErrUnknownKind):
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidParamsError, err)
	case errors.Is(err, ErrInvalidLimit):
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidLimitError, err)
	case errors.Is(err, source.ErrUpstream), errors.Is(err, source.ErrLoginFailed):
		writeError(c, http.StatusBadGateway, httperr.HttpUpstreamError, err)
	default:
		writeError(c, http.StatusInternalServerError, httperr.HttpInternalError, err)
	}
}

func writeError(c *gin.Context, status int, errorType string, err error) {
	c.JSON(status, httperr.ErrorResponse{
		ErrorType: errorType,
		Message:   http.StatusText(status),
		Details:   err.Error(),
	})
}
