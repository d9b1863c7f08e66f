package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/internal/app/service"
	apperrors "github.com/nearify/nearify-backend/internal/errors"
	"github.com/nearify/nearify-backend/internal/middleware"
)

type SearchController struct {
	searchService service.SearchService
}

func NewSearchController(searchService service.SearchService) *SearchController {
	return &SearchController{searchService: searchService}
}

// Search runs the blended business search
// GET /api/v1/search?term=<term>&location=<location>
func (ctrl *SearchController) Search(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	term := c.Query("term")
	location := c.Query("location")

	out, err := ctrl.searchService.Search(c.Request.Context(), term, location)
	if err != nil {
		if errors.Is(err, service.ErrSearchMissingQuery) {
			apperrors.BadRequest(c, apperrors.SearchMissingQuery, "Please provide both what you are looking for and where")
			return
		}
		log.Error("Search failed", err, map[string]interface{}{
			"term":     term,
			"location": location,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "search")
		return
	}

	log.Info("Search completed", map[string]interface{}{
		"term":     term,
		"location": location,
		"promoted": len(out.Promoted),
		"results":  len(out.Results),
		"degraded": out.Warning != "",
	})

	c.JSON(http.StatusOK, gin.H{
		"promoted": out.Promoted,
		"results":  out.Results,
		"count":    len(out.Results),
		"warning":  out.Warning,
	})
}
