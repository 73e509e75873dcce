package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"marketwatch/auth"
	"marketwatch/models"
	"marketwatch/uploads"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Industry{}, &models.Report{},
		&models.ReportLike{}, &models.ReportBookmark{})
	return db
}

func setupTestRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *auth.TokenManager) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))

	tokens := auth.NewTokenManager("test-secret-that-is-long-enough-00", "marketwatch-test", time.Hour)
	authModule := auth.NewAuthModule(db, tokens)

	saver := uploads.NewSaver(t.TempDir())
	reportModule := NewReportModule(db, authModule, saver, 10*1024*1024)
	reportModule.RegisterRoutes(router)

	return router, tokens
}

func createTestUser(db *gorm.DB, tokens *auth.TokenManager, email, role string) (*models.User, string) {
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	db.Create(user)
	token, _ := tokens.Generate(user.ID, user.Role)
	return user, token
}

func createTestReport(db *gorm.DB, title, industry, status string, createdAt time.Time) *models.Report {
	report := &models.Report{
		ID:             uuid.NewString(),
		Title:          title,
		Summary:        "A summary that is comfortably longer than thirty characters.",
		Content:        strings.Repeat("c", 120),
		Industry:       industry,
		Tags:           []string{"markets"},
		Recommendation: "hold",
		RiskLevel:      "medium",
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	db.Create(report)
	return report
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doForm(router *gin.Engine, method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()

	req, _ := http.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validReportFields() map[string]string {
	return map[string]string{
		"title":             "Semiconductor outlook",
		"summary":           "A summary that is comfortably longer than thirty characters.",
		"content":           strings.Repeat("c", 120),
		"industry":          "technology",
		"tags":              "chips, semiconductors",
		"recommendation":    "buy",
		"riskLevel":         "medium",
		"expectedReturn":    "5%",
		"investmentHorizon": "1y",
		"status":            "published",
	}
}

type listResponse struct {
	Status  string          `json:"status"`
	Results int             `json:"results"`
	Data    []models.Report `json:"data"`
}

func TestListReports_AnonymousSeesOnlyPublished(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())
	createTestReport(db, "Draft report 0001", "technology", models.StatusDraft, time.Now())
	createTestReport(db, "Archived report 1", "technology", models.StatusArchived, time.Now())

	w := doRequest(router, "GET", "/reports", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results)
	for _, report := range resp.Data {
		assert.Equal(t, models.StatusPublished, report.Status)
	}
}

func TestListReports_AdminSeesAllStatuses(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())
	createTestReport(db, "Draft report 0001", "technology", models.StatusDraft, time.Now())

	w := doRequest(router, "GET", "/reports", adminToken)
	var resp listResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Results)

	w = doRequest(router, "GET", "/reports?status=draft", adminToken)
	resp = listResponse{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results)
	assert.Equal(t, models.StatusDraft, resp.Data[0].Status)
}

func TestListReports_SearchAndIndustryFilters(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	createTestReport(db, "Semiconductor outlook", "technology", models.StatusPublished, time.Now())
	createTestReport(db, "Oil price analysis", "energy", models.StatusPublished, time.Now())

	w := doRequest(router, "GET", "/reports?search=SEMICONDUCTOR", "")
	var resp listResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results)
	assert.Equal(t, "Semiconductor outlook", resp.Data[0].Title)

	w = doRequest(router, "GET", "/reports?industry=energy", "")
	resp = listResponse{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results)
	assert.Equal(t, "energy", resp.Data[0].Industry)
}

func TestListReports_NewestFirst(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	base := time.Now().Add(-time.Hour)
	createTestReport(db, "Oldest report 01", "technology", models.StatusPublished, base)
	createTestReport(db, "Newest report 01", "technology", models.StatusPublished, base.Add(time.Minute))

	w := doRequest(router, "GET", "/reports", "")
	var resp listResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Results)
	assert.Equal(t, "Newest report 01", resp.Data[0].Title)
}

func TestGetReport_IncrementsViews(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	report := createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())

	for i := 1; i <= 3; i++ {
		w := doRequest(router, "GET", "/reports/"+report.ID, "")
		assert.Equal(t, http.StatusOK, w.Code)

		var stored models.Report
		db.Where("id = ?", report.ID).First(&stored)
		assert.Equal(t, int64(i), stored.Views)
	}
}

func TestGetReport_DraftHiddenFromNonAdmin(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, userToken := createTestUser(db, tokens, "reader@example.com", auth.RoleUser)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	report := createTestReport(db, "Draft report 0001", "technology", models.StatusDraft, time.Now())

	w := doRequest(router, "GET", "/reports/"+report.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "GET", "/reports/"+report.ID, userToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A failed fetch must leave the view counter alone.
	var stored models.Report
	db.Where("id = ?", report.ID).First(&stored)
	assert.Equal(t, int64(0), stored.Views)

	w = doRequest(router, "GET", "/reports/"+report.ID, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	db.Where("id = ?", report.ID).First(&stored)
	assert.Equal(t, int64(1), stored.Views)
}

func TestGetReport_RendersMarkdown(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	report := createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())
	db.Model(&models.Report{}).Where("id = ?", report.ID).
		Update("content", "# Heading\n\n"+strings.Repeat("body ", 30))

	w := doRequest(router, "GET", "/reports/"+report.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1")
}

func TestGetReportsByIndustry(t *testing.T) {
	db := setupTestDB()
	router, _ := setupTestRouter(t, db)

	createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())
	createTestReport(db, "Draft report 0001", "technology", models.StatusDraft, time.Now())
	createTestReport(db, "Oil price analysis", "energy", models.StatusPublished, time.Now())

	w := doRequest(router, "GET", "/reports/industry/technology", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Results)
	assert.Equal(t, "technology", resp.Data[0].Industry)
	assert.Equal(t, models.StatusPublished, resp.Data[0].Status)
}

func TestCreateReport_RequiresAdmin(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, userToken := createTestUser(db, tokens, "reader@example.com", auth.RoleUser)

	w := doForm(router, "POST", "/reports", "", validReportFields())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doForm(router, "POST", "/reports", userToken, validReportFields())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateReport_Success(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	w := doForm(router, "POST", "/reports", adminToken, validReportFields())
	assert.Equal(t, http.StatusCreated, w.Code)

	var report models.Report
	err := db.Where("title = ?", "Semiconductor outlook").First(&report).Error
	assert.NoError(t, err)
	assert.Equal(t, []string{"chips", "semiconductors"}, report.Tags)
	assert.Equal(t, int64(0), report.Views)
	assert.Equal(t, int64(0), report.Likes)
}

func TestCreateReport_Validation(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"short title", "title", "Too short"},
		{"long title", "title", strings.Repeat("t", 101)},
		{"short summary", "summary", "Too short"},
		{"short content", "content", strings.Repeat("c", 99)},
		{"empty tags", "tags", ""},
		{"bad recommendation", "recommendation", "maybe"},
		{"bad risk level", "riskLevel", "extreme"},
		{"bad status", "status", "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validReportFields()
			fields[tt.field] = tt.value

			w := doForm(router, "POST", "/reports", adminToken, fields)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprintf("%q", tt.field))
		})
	}

	var count int64
	db.Model(&models.Report{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUpdateReport_PartialReplace(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	report := createTestReport(db, "Original title here", "technology", models.StatusDraft, time.Now())

	w := doForm(router, "PUT", "/reports/"+report.ID, adminToken, map[string]string{
		"title":  "Updated report title",
		"status": models.StatusPublished,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Report
	db.Where("id = ?", report.ID).First(&updated)
	assert.Equal(t, "Updated report title", updated.Title)
	assert.Equal(t, models.StatusPublished, updated.Status)
	assert.Equal(t, report.Summary, updated.Summary)
}

func TestUpdateReport_DoesNotTouchEngagement(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	report := createTestReport(db, "Original title here", "technology", models.StatusPublished, time.Now())
	db.Create(&models.ReportLike{ReportID: report.ID, UserID: uuid.NewString(), CreatedAt: time.Now()})
	db.Model(&models.Report{}).Where("id = ?", report.ID).Updates(map[string]any{"likes": 1, "views": 7})

	w := doForm(router, "PUT", "/reports/"+report.ID, adminToken, map[string]string{
		"title": "Updated report title",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Report
	db.Where("id = ?", report.ID).First(&updated)
	assert.Equal(t, int64(1), updated.Likes)
	assert.Equal(t, int64(7), updated.Views)

	var likeCount int64
	db.Model(&models.ReportLike{}).Where("report_id = ?", report.ID).Count(&likeCount)
	assert.Equal(t, int64(1), likeCount)
}

func TestUpdateReport_NotFound(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	w := doForm(router, "PUT", "/reports/"+uuid.NewString(), adminToken, validReportFields())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReport(t *testing.T) {
	db := setupTestDB()
	router, tokens := setupTestRouter(t, db)
	_, adminToken := createTestUser(db, tokens, "admin@example.com", auth.RoleAdmin)

	report := createTestReport(db, "Published report", "technology", models.StatusPublished, time.Now())

	w := doRequest(router, "DELETE", "/reports/"+report.ID, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	var deleted models.Report
	result := db.Where("id = ?", report.ID).First(&deleted)
	assert.Error(t, result.Error)

	w = doRequest(router, "DELETE", "/reports/"+report.ID, adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
