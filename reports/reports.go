package reports

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketwatch/auth"
	"marketwatch/common"
	"marketwatch/models"
	"marketwatch/uploads"
)

type ReportModule struct {
	db            *gorm.DB
	auth          *auth.AuthModule
	saver         *uploads.Saver
	coverMaxBytes int64
}

func NewReportModule(db *gorm.DB, authModule *auth.AuthModule, saver *uploads.Saver, coverMaxBytes int64) *ReportModule {
	return &ReportModule{
		db:            db,
		auth:          authModule,
		saver:         saver,
		coverMaxBytes: coverMaxBytes,
	}
}

func (m *ReportModule) RegisterRoutes(router *gin.Engine) {
	reportGroup := router.Group("/reports")
	{
		reportGroup.GET("", m.auth.LoadUser, m.listReports)
		reportGroup.GET("/:id", m.auth.LoadUser, m.getReport)
		reportGroup.GET("/industry/:slug", m.getReportsByIndustry)

		authenticated := reportGroup.Group("")
		authenticated.Use(m.auth.RequireAuthenticated)
		{
			authenticated.POST("/:id/like", m.likeReport)
			authenticated.POST("/:id/bookmark", m.bookmarkReport)
		}

		adminOnly := reportGroup.Group("")
		adminOnly.Use(m.auth.RequireAuthenticated, m.auth.RequireRole(auth.RoleAdmin))
		{
			adminOnly.POST("", m.createReport)
			adminOnly.PUT("/:id", m.updateReport)
			adminOnly.DELETE("/:id", m.deleteReport)
		}
	}

	// The bookmark listing lives with the rest of the engagement actions.
	router.GET("/users/me/bookmarks", m.auth.RequireAuthenticated, m.getMyBookmarks)
}

// listReports is the highest-traffic read path: optional search, status and
// industry filters, newest first. Anonymous and non-admin callers are
// always restricted to published reports; admins get exactly the filter
// they asked for.
func (m *ReportModule) listReports(c *gin.Context) {
	query := m.db.Order("created_at DESC")

	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if industry := c.Query("industry"); industry != "" {
		query = query.Where("industry = ?", industry)
	}
	if !auth.IsAdmin(c) {
		query = query.Where("status = ?", models.StatusPublished)
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		common.Error(c, "Could not load reports")
		return
	}

	common.SuccessList(c, http.StatusOK, len(reports), reports)
}

// getReport returns one report and bumps its view counter by exactly one.
// The increment is a single-statement update so concurrent fetches of the
// same report never lose a count.
func (m *ReportModule) getReport(c *gin.Context) {
	id := c.Param("id")

	var report models.Report
	if err := m.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No report found with that ID")
			return
		}
		common.Error(c, "Could not load report")
		return
	}

	// Drafts and archived reports exist only for the admin path.
	if report.Status != models.StatusPublished && !auth.IsAdmin(c) {
		common.Fail(c, http.StatusNotFound, "No report found with that ID")
		return
	}

	if err := m.db.Model(&models.Report{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		common.Error(c, "Could not load report")
		return
	}
	report.Views++

	if err := m.loadEngagement(&report); err != nil {
		common.Error(c, "Could not load report")
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"report":      report,
		"contentHtml": renderMarkdown(report.Content),
	})
}

func (m *ReportModule) getReportsByIndustry(c *gin.Context) {
	slug := c.Param("slug")

	var reports []models.Report
	if err := m.db.Where("industry = ? AND status = ?", slug, models.StatusPublished).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		common.Error(c, "Could not load reports")
		return
	}

	common.SuccessList(c, http.StatusOK, len(reports), reports)
}

func (m *ReportModule) createReport(c *gin.Context) {
	report := models.Report{
		ID:                uuid.NewString(),
		Title:             c.PostForm("title"),
		Summary:           c.PostForm("summary"),
		Content:           c.PostForm("content"),
		Industry:          c.PostForm("industry"),
		Tags:              splitTags(c.PostForm("tags")),
		Recommendation:    c.PostForm("recommendation"),
		RiskLevel:         c.PostForm("riskLevel"),
		ExpectedReturn:    c.PostForm("expectedReturn"),
		InvestmentHorizon: c.PostForm("investmentHorizon"),
		Status:            c.PostForm("status"),
		Views:             0,
		Likes:             0,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if fields := validateReport(&report); len(fields) > 0 {
		common.FailFields(c, http.StatusBadRequest, "Invalid report data", fields)
		return
	}

	coverImage, err := m.saver.Save(c, "coverImage", "reports", "report", m.coverMaxBytes)
	if err != nil {
		m.failUpload(c, err)
		return
	}
	report.CoverImage = coverImage

	if err := m.db.Create(&report).Error; err != nil {
		common.Error(c, "Could not create report")
		return
	}

	common.Success(c, http.StatusCreated, report)
}

// updateReport replaces the provided fields and re-validates the merged
// record. The engagement fields and the view counter are never written
// here; only the dedicated actions touch them.
func (m *ReportModule) updateReport(c *gin.Context) {
	id := c.Param("id")

	var report models.Report
	if err := m.db.Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No report found with that ID")
			return
		}
		common.Error(c, "Could not load report")
		return
	}

	if v, ok := c.GetPostForm("title"); ok {
		report.Title = v
	}
	if v, ok := c.GetPostForm("summary"); ok {
		report.Summary = v
	}
	if v, ok := c.GetPostForm("content"); ok {
		report.Content = v
	}
	if v, ok := c.GetPostForm("industry"); ok {
		report.Industry = v
	}
	if v, ok := c.GetPostForm("tags"); ok {
		report.Tags = splitTags(v)
	}
	if v, ok := c.GetPostForm("recommendation"); ok {
		report.Recommendation = v
	}
	if v, ok := c.GetPostForm("riskLevel"); ok {
		report.RiskLevel = v
	}
	if v, ok := c.GetPostForm("expectedReturn"); ok {
		report.ExpectedReturn = v
	}
	if v, ok := c.GetPostForm("investmentHorizon"); ok {
		report.InvestmentHorizon = v
	}
	if v, ok := c.GetPostForm("status"); ok {
		report.Status = v
	}

	if fields := validateReport(&report); len(fields) > 0 {
		common.FailFields(c, http.StatusBadRequest, "Invalid report data", fields)
		return
	}

	coverImage, err := m.saver.Save(c, "coverImage", "reports", "report", m.coverMaxBytes)
	if err != nil {
		m.failUpload(c, err)
		return
	}
	if coverImage != "" {
		report.CoverImage = coverImage
	}

	report.UpdatedAt = time.Now()
	if err := m.db.Model(&models.Report{}).Where("id = ?", id).
		Select("title", "summary", "content", "industry", "tags", "cover_image",
			"recommendation", "risk_level", "expected_return", "investment_horizon",
			"status", "updated_at").
		Updates(&report).Error; err != nil {
		common.Error(c, "Could not update report")
		return
	}

	common.Success(c, http.StatusOK, report)
}

func (m *ReportModule) deleteReport(c *gin.Context) {
	id := c.Param("id")

	result := m.db.Where("id = ?", id).Delete(&models.Report{})
	if result.Error != nil {
		common.Error(c, "Could not delete report")
		return
	}
	if result.RowsAffected == 0 {
		common.Fail(c, http.StatusNotFound, "No report found with that ID")
		return
	}

	common.Success(c, http.StatusOK, nil)
}

// loadEngagement fills the transient membership sets from the join tables.
func (m *ReportModule) loadEngagement(report *models.Report) error {
	report.LikedBy = []string{}
	report.BookmarkedBy = []string{}

	var likes []models.ReportLike
	if err := m.db.Where("report_id = ?", report.ID).Find(&likes).Error; err != nil {
		return err
	}
	for _, like := range likes {
		report.LikedBy = append(report.LikedBy, like.UserID)
	}

	var bookmarks []models.ReportBookmark
	if err := m.db.Where("report_id = ?", report.ID).Find(&bookmarks).Error; err != nil {
		return err
	}
	for _, bookmark := range bookmarks {
		report.BookmarkedBy = append(report.BookmarkedBy, bookmark.UserID)
	}

	return nil
}

func (m *ReportModule) failUpload(c *gin.Context, err error) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		common.Fail(c, http.StatusBadRequest, "Cover image exceeds the size limit")
	case errors.Is(err, uploads.ErrBadType):
		common.Fail(c, http.StatusBadRequest, "Only image files are allowed")
	default:
		common.Error(c, "Could not store the uploaded file")
	}
}
