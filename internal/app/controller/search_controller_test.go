package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/app/service"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/nearify/nearify-backend/pkg/geo"
	"github.com/nearify/nearify-backend/pkg/overpass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	loc *geo.Location
	err error
}

func (s *stubGeocoder) Geocode(ctx context.Context, query string) (*geo.Location, error) {
	return s.loc, s.err
}

type stubArea struct {
	places []overpass.Place
}

func (s *stubArea) Search(ctx context.Context, term string, lat, lon float64, radiusM int) []overpass.Place {
	return s.places
}

func setupSearchControllerTest(t *testing.T, geocoder service.Geocoder, area service.AreaSearcher) *gin.Engine {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	require.NoError(t, testDB.Create(&model.Listing{
		Name:      "Corner Pharmacy",
		Category:  "pharmacy",
		Location:  "Brownsburg, IN",
		IsCurated: true,
	}).Error)

	searchService := service.NewSearchService(repository.NewListingRepository(testDB), geocoder, area)
	ctrl := NewSearchController(searchService)

	router := gin.New()
	router.GET("/search", ctrl.Search)
	return router
}

func TestSearchController_Success(t *testing.T) {
	router := setupSearchControllerTest(t,
		&stubGeocoder{loc: &geo.Location{Lat: 39.84, Lon: -86.39}},
		&stubArea{places: []overpass.Place{{OSMID: "node_1", Name: "Live Drugs"}}},
	)

	req := httptest.NewRequest("GET", "/search?term=pharmacy&location=Brownsburg,+IN", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Corner Pharmacy")
	assert.Contains(t, w.Body.String(), "Live Drugs")
}

func TestSearchController_MissingQuery(t *testing.T) {
	router := setupSearchControllerTest(t, &stubGeocoder{}, &stubArea{})

	req := httptest.NewRequest("GET", "/search?term=pharmacy", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SEARCH_MISSING_QUERY")
}

func TestSearchController_GeocodeFailureStillReturnsCurated(t *testing.T) {
	router := setupSearchControllerTest(t,
		&stubGeocoder{err: geo.ErrNoResults},
		&stubArea{},
	)

	req := httptest.NewRequest("GET", "/search?term=pharmacy&location=Nowhere", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Corner Pharmacy")
	assert.Contains(t, w.Body.String(), "Could not understand that location")
}
