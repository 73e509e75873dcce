package industries

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketwatch/auth"
	"marketwatch/common"
	"marketwatch/models"
)

// recentReportsLimit caps the report list embedded in the industry detail
// response; the total count is reported separately.
const recentReportsLimit = 10

type IndustryModule struct {
	db   *gorm.DB
	auth *auth.AuthModule
}

func NewIndustryModule(db *gorm.DB, authModule *auth.AuthModule) *IndustryModule {
	return &IndustryModule{db: db, auth: authModule}
}

func (m *IndustryModule) RegisterRoutes(router *gin.Engine) {
	industryGroup := router.Group("/industries")
	{
		industryGroup.GET("", m.listIndustries)
		industryGroup.GET("/:slug", m.getIndustry)

		adminOnly := industryGroup.Group("")
		adminOnly.Use(m.auth.RequireAuthenticated, m.auth.RequireRole(auth.RoleAdmin))
		{
			adminOnly.POST("", m.createIndustry)
			adminOnly.PUT("/:id", m.updateIndustry)
			adminOnly.DELETE("/:id", m.deleteIndustry)
		}
	}
}

// findIndustries returns industries in creation order. No exposed route
// passes includeInactive.
func (m *IndustryModule) findIndustries(includeInactive bool) ([]models.Industry, error) {
	query := m.db.Order("created_at ASC")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var industries []models.Industry
	err := query.Find(&industries).Error
	return industries, err
}

func (m *IndustryModule) findBySlug(slug string, includeInactive bool) (*models.Industry, error) {
	query := m.db.Where("slug = ?", slug)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var industry models.Industry
	if err := query.First(&industry).Error; err != nil {
		return nil, err
	}
	return &industry, nil
}

func (m *IndustryModule) listIndustries(c *gin.Context) {
	industries, err := m.findIndustries(false)
	if err != nil {
		common.Error(c, "Could not load industries")
		return
	}

	common.SuccessList(c, http.StatusOK, len(industries), industries)
}

func (m *IndustryModule) getIndustry(c *gin.Context) {
	slug := c.Param("slug")

	industry, err := m.findBySlug(slug, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No industry found with that slug")
			return
		}
		common.Error(c, "Could not load industry")
		return
	}

	var reports []models.Report
	if err := m.db.Where("industry = ? AND status = ?", slug, models.StatusPublished).
		Order("created_at DESC").
		Limit(recentReportsLimit).
		Find(&reports).Error; err != nil {
		common.Error(c, "Could not load industry reports")
		return
	}

	var totalReports int64
	if err := m.db.Model(&models.Report{}).
		Where("industry = ? AND status = ?", slug, models.StatusPublished).
		Count(&totalReports).Error; err != nil {
		common.Error(c, "Could not load industry stats")
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"industry": industry,
		"reports":  reports,
		"stats": gin.H{
			"totalReports": totalReports,
		},
	})
}

type industryInput struct {
	Name              *string                  `json:"name"`
	Description       *string                  `json:"description"`
	Image             *string                  `json:"image"`
	KeyMetrics        []string                 `json:"keyMetrics"`
	TopCompanies      []models.IndustryCompany `json:"topCompanies"`
	RelatedIndustries []string                 `json:"relatedIndustries"`
	Active            *bool                    `json:"active"`
}

func (m *IndustryModule) createIndustry(c *gin.Context) {
	var req industryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Name == nil || *req.Name == "" {
		fields["name"] = "An industry must have a name"
	}
	if req.Description == nil || *req.Description == "" {
		fields["description"] = "An industry must have a description"
	}
	if len(fields) > 0 {
		common.FailFields(c, http.StatusBadRequest, "Invalid industry data", fields)
		return
	}

	industry := models.Industry{
		ID:                uuid.NewString(),
		Name:              *req.Name,
		Slug:              Slugify(*req.Name),
		Description:       *req.Description,
		KeyMetrics:        req.KeyMetrics,
		TopCompanies:      req.TopCompanies,
		RelatedIndustries: req.RelatedIndustries,
		Active:            true,
	}
	if req.Image != nil {
		industry.Image = *req.Image
	}
	if req.Active != nil {
		industry.Active = *req.Active
	}

	// Collision check and insert run in one transaction so two concurrent
	// creates with the same name cannot both succeed; the unique indexes
	// on name and slug back this up at the storage layer.
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Industry{}).
			Where("name = ? OR slug = ?", industry.Name, industry.Slug).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errConflict
		}
		return tx.Create(&industry).Error
	})
	if err != nil {
		if errors.Is(err, errConflict) {
			common.Fail(c, http.StatusConflict, "An industry with that name already exists")
			return
		}
		common.Error(c, "Could not create industry")
		return
	}

	common.Success(c, http.StatusCreated, industry)
}

var errConflict = errors.New("industry name or slug collision")

func (m *IndustryModule) updateIndustry(c *gin.Context) {
	id := c.Param("id")

	var req industryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var industry models.Industry
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&industry).Error; err != nil {
			return err
		}

		if req.Name != nil && *req.Name != industry.Name {
			if *req.Name == "" {
				return errEmptyName
			}
			newSlug := Slugify(*req.Name)
			var count int64
			if err := tx.Model(&models.Industry{}).
				Where("(name = ? OR slug = ?) AND id <> ?", *req.Name, newSlug, id).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errConflict
			}
			industry.Name = *req.Name
			industry.Slug = newSlug
		}
		if req.Description != nil {
			if *req.Description == "" {
				return errEmptyDescription
			}
			industry.Description = *req.Description
		}
		if req.Image != nil {
			industry.Image = *req.Image
		}
		if req.KeyMetrics != nil {
			industry.KeyMetrics = req.KeyMetrics
		}
		if req.TopCompanies != nil {
			industry.TopCompanies = req.TopCompanies
		}
		if req.RelatedIndustries != nil {
			industry.RelatedIndustries = req.RelatedIndustries
		}
		if req.Active != nil {
			industry.Active = *req.Active
		}

		return tx.Save(&industry).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			common.Fail(c, http.StatusNotFound, "No industry found with that ID")
		case errors.Is(err, errConflict):
			common.Fail(c, http.StatusConflict, "An industry with that name already exists")
		case errors.Is(err, errEmptyName):
			common.FailFields(c, http.StatusBadRequest, "Invalid industry data",
				map[string]string{"name": "An industry must have a name"})
		case errors.Is(err, errEmptyDescription):
			common.FailFields(c, http.StatusBadRequest, "Invalid industry data",
				map[string]string{"description": "An industry must have a description"})
		default:
			common.Error(c, "Could not update industry")
		}
		return
	}

	common.Success(c, http.StatusOK, industry)
}

var (
	errEmptyName        = errors.New("industry name is empty")
	errEmptyDescription = errors.New("industry description is empty")
)

// deleteIndustry hard-removes the record. Reports referencing the slug are
// left alone; readers treat the dangling slug as "no such industry".
func (m *IndustryModule) deleteIndustry(c *gin.Context) {
	id := c.Param("id")

	result := m.db.Where("id = ?", id).Delete(&models.Industry{})
	if result.Error != nil {
		common.Error(c, "Could not delete industry")
		return
	}
	if result.RowsAffected == 0 {
		common.Fail(c, http.StatusNotFound, "No industry found with that ID")
		return
	}

	common.Success(c, http.StatusOK, nil)
}
