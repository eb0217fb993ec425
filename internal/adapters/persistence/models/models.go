package models

import (
	"time"

	"dimos-fixit/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	FirstName string    `gorm:"size:100;not null" json:"firstName"`
	LastName  string    `gorm:"size:100;not null" json:"lastName"`
	Phone     *string   `gorm:"size:30" json:"phone"`
	Role      string    `gorm:"size:20;not null;index" json:"role"`
	IsActive  bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Actor returns the policy subject for this user
func (u *User) Actor() domain.Actor {
	return domain.Actor{ID: u.ID, Role: domain.Role(u.Role)}
}

// UserSummary is the embedded form of a user inside other resources
type UserSummary struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Summary returns the embedded form, nil for a nil user
func (u *User) Summary() *UserSummary {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"userId"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	RevokedAt *time.Time `gorm:"index" json:"revokedAt"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Master Tables
// ============================================================

// Category κατηγορία προβλήματος (Master)
type Category struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"size:100;uniqueIndex;not null" json:"name"`
	NameEn        string        `gorm:"size:100" json:"nameEn"`
	Description   string        `gorm:"type:text" json:"description"`
	Color         string        `gorm:"size:20" json:"color"`
	Icon          string        `gorm:"size:50" json:"icon"`
	IsActive      bool          `gorm:"not null;index" json:"isActive"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
	Subcategories []Subcategory `gorm:"foreignKey:CategoryID" json:"subcategories,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// Subcategory υποκατηγορία (Master)
type Subcategory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CategoryID    uint      `gorm:"not null;index" json:"categoryId"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	NameEn        string    `gorm:"size:100" json:"nameEn"`
	Description   string    `gorm:"type:text" json:"description"`
	EstimatedDays *int      `json:"estimatedDays"`
	IsActive      bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	Category      *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Subcategory) TableName() string {
	return "subcategories"
}

// Setting ρύθμιση συστήματος (key/value)
type Setting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;size:100;uniqueIndex;not null" json:"key"`
	Value       string    `gorm:"type:text" json:"value"`
	Description string    `gorm:"size:255" json:"description"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Setting) TableName() string {
	return "settings"
}

// RetiredReference κρατά τους αριθμούς αναφοράς διαγραμμένων αιτημάτων
type RetiredReference struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ReferenceNumber string    `gorm:"size:30;uniqueIndex;not null" json:"referenceNumber"`
	IssueID         uint      `gorm:"not null" json:"issueId"`
	RetiredAt       time.Time `gorm:"autoCreateTime" json:"retiredAt"`
}

func (RetiredReference) TableName() string {
	return "retired_references"
}

// ============================================================
// Main Tables
// ============================================================

// Issue αναφορά πολίτη (ταμπλό κύριο)
type Issue struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ReferenceNumber string     `gorm:"size:32;uniqueIndex;not null" json:"referenceNumber"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	Address         string     `gorm:"size:255;not null" json:"address"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	Status          string     `gorm:"size:20;not null;index" json:"status"`
	Priority        string     `gorm:"size:20;not null;index" json:"priority"`
	IsEmergency     bool       `gorm:"not null;index" json:"isEmergency"`
	CreatedByID     uint       `gorm:"not null;index" json:"createdById"`
	AssignedToID    *uint      `gorm:"index" json:"assignedToId"`
	CategoryID      uint       `gorm:"not null;index" json:"categoryId"`
	SubcategoryID   *uint      `gorm:"index" json:"subcategoryId"`
	CompletedAt     *time.Time `json:"completedAt"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	CreatedBy   *User        `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedTo  *User        `gorm:"foreignKey:AssignedToID" json:"-"`
	Category    *Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Subcategory *Subcategory `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"`
	Photos      []Photo      `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"-"`

	// Derived, filled by Derive
	Creator          *UserSummary `gorm:"-" json:"createdBy,omitempty"`
	Assignee         *UserSummary `gorm:"-" json:"assignedTo,omitempty"`
	IsOverdue        bool         `gorm:"-" json:"isOverdue"`
	DaysSinceCreated int          `gorm:"-" json:"daysSinceCreated"`
}

func (Issue) TableName() string {
	return "issues"
}

// Derive fills the computed, non-persisted fields
func (i *Issue) Derive(now time.Time) {
	i.Creator = i.CreatedBy.Summary()
	i.Assignee = i.AssignedTo.Summary()
	i.DaysSinceCreated = domain.DaysSince(i.CreatedAt, now)

	var estimated *int
	if i.Subcategory != nil {
		estimated = i.Subcategory.EstimatedDays
	}
	i.IsOverdue = domain.IsOverdue(domain.IssueStatus(i.Status), i.CreatedAt, estimated, now)
}

// Photo φωτογραφία αναφοράς
type Photo struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IssueID      uint      `gorm:"not null;index" json:"issueId"`
	UploadedByID uint      `gorm:"not null;index" json:"uploadedById"`
	FileName     string    `gorm:"size:255;not null" json:"fileName"`
	OriginalName string    `gorm:"size:255" json:"originalName"`
	MimeType     string    `gorm:"size:100" json:"mimeType"`
	Size         int64     `json:"size"`
	Path         string    `gorm:"size:500;not null" json:"path"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Photo) TableName() string {
	return "photos"
}

// Comment σχόλιο αναφοράς
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	IssueID    uint      `gorm:"not null;index" json:"issueId"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsInternal bool      `gorm:"not null" json:"isInternal"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	User   *User        `gorm:"foreignKey:UserID" json:"-"`
	Author *UserSummary `gorm:"-" json:"user,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}

// AutoMigrate creates or updates every table in dependency order
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Category{},
		&Subcategory{},
		&Setting{},
		&Issue{},
		&Photo{},
		&Comment{},
		&RetiredReference{},
	)
}
