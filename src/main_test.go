package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"replate/src/config"
	"replate/src/db"
	"replate/src/middlewares"
	"replate/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock *sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: conn,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("collectabledate", collectableDateValidatorFunc)
	}

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = &mock
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestAuthRoutes() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("register rejects an incomplete body", func() {
		jbody := map[string]any{
			"email": "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		errMsg := gjson.Get(w.Body.String(), "error").String()
		assert.NotEmpty(s.T(), errMsg)
	})

	s.Run("login rejects a malformed email", func() {
		jbody := map[string]any{
			"email": "not-an-email",
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestProtectedRoutes() {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	listingHandlers(authorized)
	bookingHandlers(authorized)

	s.Run("listings require a bearer token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/listings", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("garbage tokens are rejected", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})
}

func (s *TestSuite) TestClaimCodeOwnership() {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(func(ctx *gin.Context) {
		ctx.Set("id", uint(5))
		ctx.Set("role", types.ROLE_RECIPIENT)
	})
	bookingHandlers(authorized)

	// The booking belongs to someone else; the handler must refuse before
	// it ever consults the credential-asset cache.
	(*s.Mock).ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "provider_id", "recipient_id", "status"}).
			AddRow(1, 3, 10, 999, "approved"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings/1/code", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
}

func TestCollectableDateValidator(t *testing.T) {
	type form struct {
		ExpiryTime string `validate:"collectabledate"`
	}
	v := validator.New()
	err := v.RegisterValidation("collectabledate", collectableDateValidatorFunc)
	assert.Nil(t, err)

	future := time.Now().Add(2 * time.Hour).Format(config.TIME_PARSE_FORMAT)
	assert.Nil(t, v.Struct(form{ExpiryTime: future}))

	past := time.Now().Add(-2 * time.Hour).Format(config.TIME_PARSE_FORMAT)
	assert.NotNil(t, v.Struct(form{ExpiryTime: past}))

	assert.NotNil(t, v.Struct(form{ExpiryTime: "yesterday"}))
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
