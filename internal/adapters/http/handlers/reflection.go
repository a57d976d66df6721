package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/dto"
	"github.com/jsamuelsen/stoic-reflections/internal/app"
)

// ReflectionHandler handles the public reflection read endpoints.
type ReflectionHandler struct {
	service *app.ReflectionService
}

// NewReflectionHandler creates a new reflection handler.
func NewReflectionHandler(service *app.ReflectionService) *ReflectionHandler {
	return &ReflectionHandler{
		service: service,
	}
}

// MonthlyThemeResponse describes the guiding theme for the entry's month.
type MonthlyThemeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ReflectionResponse is the HTTP response structure for a daily reflection.
type ReflectionResponse struct {
	Date         string               `json:"date"`
	Quote        string               `json:"quote"`
	Attribution  string               `json:"attribution"`
	Theme        string               `json:"theme"`
	Reflection   string               `json:"reflection"`
	MonthlyTheme MonthlyThemeResponse `json:"monthlyTheme"`
}

// toReflectionResponse converts an application DailyReflection to an HTTP response.
func toReflectionResponse(r app.DailyReflection) *ReflectionResponse {
	return &ReflectionResponse{
		Date:        r.Date,
		Quote:       r.Quote,
		Attribution: r.Attribution,
		Theme:       r.Theme,
		Reflection:  r.Reflection,
		MonthlyTheme: MonthlyThemeResponse{
			Name:        r.MonthlyTheme.Name,
			Description: r.MonthlyTheme.Description,
		},
	}
}

// GetToday handles GET /reflection/today
// Returns the reflection archived for the current UTC date.
//
// @Summary Get today's reflection
// @Description Fetches the reflection archived for the current UTC date
// @Tags reflections
// @Produce json
// @Success 200 {object} ReflectionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /reflection/today [get]
func (h *ReflectionHandler) GetToday(c *gin.Context) {
	reflection, err := h.service.Today(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReflectionResponse(reflection))
}

// GetByDate handles GET /reflection/:date
// Returns the reflection archived for a specific date.
//
// @Summary Get a reflection by date
// @Description Fetches the archived reflection for a YYYY-MM-DD date
// @Tags reflections
// @Produce json
// @Param date path string true "Date in YYYY-MM-DD form"
// @Success 200 {object} ReflectionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /reflection/{date} [get]
func (h *ReflectionHandler) GetByDate(c *gin.Context) {
	reflection, err := h.service.ForDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReflectionResponse(reflection))
}

// RegisterReflectionRoutes registers the reflection routes on the given
// router group. The paths match what the reading page has always called.
func (h *ReflectionHandler) RegisterReflectionRoutes(rg *gin.RouterGroup) {
	reflection := rg.Group("/reflection")
	reflection.GET("/today", h.GetToday)
	reflection.GET("/:date", h.GetByDate)
}
