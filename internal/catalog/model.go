package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidSlug indicates a slug is empty or not URL-safe.
	ErrInvalidSlug = errors.New("catalog: invalid slug")
	// ErrInvalidRating indicates a rating outside the 0-5 range.
	ErrInvalidRating = errors.New("catalog: rating must be between 0 and 5")
	// ErrInvalidOnboardingSteps indicates a negative onboarding step count.
	ErrInvalidOnboardingSteps = errors.New("catalog: onboarding steps must not be negative")
	// ErrNotFound indicates the requested case study does not exist.
	ErrNotFound = errors.New("catalog: case study not found")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slug represents a validated URL-safe case-study identifier.
type Slug string

// NewSlug validates raw input and returns a Slug.
func NewSlug(rawInput string) (Slug, error) {
	trimmed := strings.TrimSpace(strings.ToLower(rawInput))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if !slugPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, rawInput)
	}
	return Slug(trimmed), nil
}

// String returns the underlying slug value.
func (s Slug) String() string {
	return string(s)
}

// CaseStudy models one app profile together with its ordered section tree.
type CaseStudy struct {
	ID              string     `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Slug            string     `gorm:"column:slug;size:190;not null;uniqueIndex" json:"slug"`
	Title           string     `gorm:"column:title;size:320;not null" json:"title"`
	Category        string     `gorm:"column:category;size:190;not null" json:"category"`
	Revenue         string     `gorm:"column:revenue;size:64;not null" json:"revenue"`
	Downloads       string     `gorm:"column:downloads;size:64;not null" json:"downloads"`
	FounderType     string     `gorm:"column:founder_type;size:190;not null" json:"founder_type"`
	BusinessModel   string     `gorm:"column:business_model;size:190;not null" json:"business_model"`
	IsFree          bool       `gorm:"column:is_free;not null;default:false" json:"is_free"`
	Description     string     `gorm:"column:description;type:text" json:"description"`
	AppIcon         string     `gorm:"column:app_icon;size:16" json:"app_icon"`
	Rating          float64    `gorm:"column:rating;not null;default:0" json:"rating"`
	OnboardingSteps int        `gorm:"column:onboarding_steps;not null;default:0" json:"onboarding_steps"`
	Developer       string     `gorm:"column:developer;size:320" json:"developer"`
	Content         string     `gorm:"column:content;type:text" json:"content"`
	PublishedAt     time.Time  `gorm:"column:published_at;not null;index" json:"published_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Sections        []*Section `gorm:"foreignKey:CaseStudyID;constraint:OnDelete:CASCADE" json:"sections"`
}

// TableName provides the explicit table binding for GORM.
func (CaseStudy) TableName() string {
	return "case_studies"
}

// Section is a named tab-like grouping within a case study.
type Section struct {
	ID           string        `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	CaseStudyID  string        `gorm:"column:case_study_id;size:190;not null;index" json:"case_study_id"`
	SectionID    string        `gorm:"column:section_id;size:190;not null" json:"section_id"`
	SectionLabel string        `gorm:"column:section_label;size:320;not null" json:"section_label"`
	IntroText    string        `gorm:"column:intro_text;type:text" json:"intro_text"`
	SortOrder    int           `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Accordions   []*Accordion  `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"accordions"`
	Screenshots  []*Screenshot `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"screenshots"`
}

// TableName provides the explicit table binding for GORM.
func (Section) TableName() string {
	return "case_study_sections"
}

// Accordion is a collapsible content block within a section. Content is
// markdown and may reference the section's screenshot strip via
// "[Screen N]" tokens.
type Accordion struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SectionID   string    `gorm:"column:section_id;size:190;not null;index" json:"section_id"`
	Title       string    `gorm:"column:title;size:320;not null" json:"title"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	DefaultOpen bool      `gorm:"column:default_open;not null;default:false" json:"default_open"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Accordion) TableName() string {
	return "section_accordions"
}

// Screenshot is one entry of a section's screenshot strip. Ref is a stable
// position-independent identifier assigned at creation; rendered screen
// links target the ref so reordering the strip cannot break them.
type Screenshot struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SectionID string    `gorm:"column:section_id;size:190;not null;index" json:"section_id"`
	Ref       string    `gorm:"column:ref;size:190;not null" json:"ref"`
	URL       string    `gorm:"column:url;size:1024" json:"url"`
	Title     string    `gorm:"column:title;size:320" json:"title"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Screenshot) TableName() string {
	return "case_study_screenshots"
}
