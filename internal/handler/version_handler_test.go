package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carcatalog/internal/database"
	"carcatalog/internal/middleware"
	"carcatalog/internal/model"
	"carcatalog/internal/repository"
	"carcatalog/internal/service"
	"carcatalog/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastJSON(event string, payload interface{}) {}

func setupVersionRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	middleware.InitPermissionMiddleware(db)

	versionService := service.NewVersionService(
		db,
		repository.NewVersionRepository(db),
		repository.NewCatalogRepository(db),
		repository.NewDiscountRepository(db),
		repository.NewJobRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		noopBroadcaster{},
	)

	router := gin.New()
	NewVersionHandler(versionService).RegisterRoutes(router.Group(""))
	return router, db
}

func seedUser(t *testing.T, db *gorm.DB, name, role, position string) *model.User {
	t.Helper()
	user := &model.User{
		Username: name,
		Email:    name + "@corp.com",
		Password: "not-a-real-hash",
		Role:     role,
		Position: position,
		Status:   model.UserActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func bearerToken(t *testing.T, user *model.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID.String(),
		"role":     user.Role,
		"position": user.Position,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.GetJWTSecret())
	require.NoError(t, err)
	return "Bearer " + signed
}

func approveRequest(t *testing.T, router *gin.Engine, versionID, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/versions/"+versionID+"/approve", nil)
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// A USER-role account with a managerial position must be able to approve
// through the HTTP route: the gate lives in the service's position check,
// not in the role permission matrix.
func TestVersionRoutes_ManagerApproves(t *testing.T) {
	router, db := setupVersionRouter(t)

	manager := seedUser(t, db, "route-manager", model.RoleUser, model.PositionManager)
	version := &model.Version{VersionName: "v1", ApprovalStatus: model.VersionPending, MainSyncStatus: model.SyncNone}
	require.NoError(t, db.Create(version).Error)

	rec := approveRequest(t, router, version.ID.String(), bearerToken(t, manager))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)

	var saved model.Version
	require.NoError(t, db.First(&saved, "id = ?", version.ID).Error)
	assert.Equal(t, model.VersionApproved, saved.ApprovalStatus)
	require.NotNil(t, saved.ApprovedBy)
	assert.Equal(t, manager.ID, *saved.ApprovedBy)
}

func TestVersionRoutes_EmployeeApproveDenied(t *testing.T) {
	router, db := setupVersionRouter(t)

	employee := seedUser(t, db, "route-employee", model.RoleUser, model.PositionEmployee)
	version := &model.Version{VersionName: "v1", ApprovalStatus: model.VersionPending, MainSyncStatus: model.SyncNone}
	require.NoError(t, db.Create(version).Error)

	rec := approveRequest(t, router, version.ID.String(), bearerToken(t, employee))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Detail, "permission denied")

	var saved model.Version
	require.NoError(t, db.First(&saved, "id = ?", version.ID).Error)
	assert.Equal(t, model.VersionPending, saved.ApprovalStatus)
}

func TestVersionRoutes_ApproveRequiresToken(t *testing.T) {
	router, db := setupVersionRouter(t)

	version := &model.Version{VersionName: "v1", ApprovalStatus: model.VersionPending, MainSyncStatus: model.SyncNone}
	require.NoError(t, db.Create(version).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/versions/"+version.ID.String()+"/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
