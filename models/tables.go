package models

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Name         string    `json:"name"`
	Role         string    `gorm:"not null;default:user;index" json:"role"` // "user" or "admin"
	Avatar       string    `json:"avatar"`                                  // opaque upload reference
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Industry struct {
	ID                string            `gorm:"primaryKey" json:"id"`
	Name              string            `gorm:"unique;not null" json:"name"`
	Slug              string            `gorm:"unique;not null;index" json:"slug"` // derived from Name, external key
	Description       string            `gorm:"type:text;not null" json:"description"`
	Image             string            `json:"image"`
	KeyMetrics        []string          `gorm:"serializer:json" json:"keyMetrics"`
	TopCompanies      []IndustryCompany `gorm:"serializer:json" json:"topCompanies"`
	RelatedIndustries []string          `gorm:"serializer:json" json:"relatedIndustries"` // slugs, weak references
	Active            bool              `gorm:"default:true;index" json:"active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type IndustryCompany struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

type Report struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Title             string    `gorm:"not null;index" json:"title"`
	Summary           string    `gorm:"type:text;not null" json:"summary"`
	Content           string    `gorm:"type:text;not null" json:"content"` // markdown, stored verbatim
	Industry          string    `gorm:"not null;index" json:"industry"`    // industry slug, weak reference
	Tags              []string  `gorm:"serializer:json" json:"tags"`
	CoverImage        string    `json:"coverImage"`
	Recommendation    string    `gorm:"not null" json:"recommendation"` // buy | hold | sell
	RiskLevel         string    `gorm:"not null" json:"riskLevel"`      // low | medium | high
	ExpectedReturn    string    `json:"expectedReturn"`
	InvestmentHorizon string    `json:"investmentHorizon"`
	Status            string    `gorm:"not null;default:draft;index" json:"status"` // draft | published | archived
	Views             int64     `gorm:"not null;default:0" json:"views"`
	Likes             int64     `gorm:"not null;default:0" json:"likes"` // kept equal to the like row count
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Filled on detail reads from the join tables below.
	LikedBy      []string `gorm:"-" json:"likedBy"`
	BookmarkedBy []string `gorm:"-" json:"bookmarkedBy"`
}

type ReportLike struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ReportID  string    `gorm:"not null;index;uniqueIndex:idx_report_like" json:"report_id"`
	UserID    string    `gorm:"not null;index;uniqueIndex:idx_report_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportBookmark struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ReportID  string    `gorm:"not null;index;uniqueIndex:idx_report_bookmark" json:"report_id"`
	UserID    string    `gorm:"not null;index;uniqueIndex:idx_report_bookmark" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
