package reports

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketwatch/auth"
	"marketwatch/common"
	"marketwatch/models"
)

// The like and bookmark actions are toggles: calling one twice returns the
// caller to their original state. Set membership and the likes counter are
// always written inside one transaction so the counter cannot drift from
// the membership count.

func (m *ReportModule) likeReport(c *gin.Context) {
	id := c.Param("id")
	user := auth.CurrentUser(c)

	var liked bool
	var likes int64

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.Where("id = ?", id).First(&report).Error; err != nil {
			return err
		}

		var like models.ReportLike
		err := tx.Where("report_id = ? AND user_id = ?", id, user.ID).First(&like).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			like = models.ReportLike{
				ReportID:  id,
				UserID:    user.ID,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Report{}).Where("id = ?", id).
				UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
				return err
			}
			liked = true
			likes = report.Likes + 1
			return nil
		case err != nil:
			return err
		}

		if err := tx.Delete(&like).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("id = ?", id).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error; err != nil {
			return err
		}
		liked = false
		likes = report.Likes - 1
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No report found with that ID")
			return
		}
		common.Error(c, "Could not update like")
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"liked": liked,
		"likes": likes,
	})
}

func (m *ReportModule) bookmarkReport(c *gin.Context) {
	id := c.Param("id")
	user := auth.CurrentUser(c)

	var bookmarked bool

	err := m.db.Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.Where("id = ?", id).First(&report).Error; err != nil {
			return err
		}

		var bookmark models.ReportBookmark
		err := tx.Where("report_id = ? AND user_id = ?", id, user.ID).First(&bookmark).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			bookmark = models.ReportBookmark{
				ReportID:  id,
				UserID:    user.ID,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&bookmark).Error; err != nil {
				return err
			}
			bookmarked = true
			return nil
		case err != nil:
			return err
		}

		if err := tx.Delete(&bookmark).Error; err != nil {
			return err
		}
		bookmarked = false
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No report found with that ID")
			return
		}
		common.Error(c, "Could not update bookmark")
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"bookmarked": bookmarked,
	})
}

func (m *ReportModule) getMyBookmarks(c *gin.Context) {
	user := auth.CurrentUser(c)

	var reports []models.Report
	if err := m.db.
		Joins("JOIN report_bookmarks ON report_bookmarks.report_id = reports.id").
		Where("report_bookmarks.user_id = ?", user.ID).
		Order("reports.created_at DESC").
		Find(&reports).Error; err != nil {
		common.Error(c, "Could not load bookmarks")
		return
	}

	common.SuccessList(c, http.StatusOK, len(reports), reports)
}
