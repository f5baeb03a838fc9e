package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingIDProvider = errors.New("id provider is required")
	errMissingDatabase   = errors.New("database handle is not configured")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps catalog failures with an operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable operation.reason code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "catalog.service.new"
	opList       = "catalog.list"
	opGetBySlug  = "catalog.get_by_slug"
	opGetByID    = "catalog.get_by_id"
	opCreate     = "catalog.create"
	opUpdate     = "catalog.update"
	opDelete     = "catalog.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig bundles the dependencies of the catalog service.
//
// Database may be nil: reads then degrade to empty results and writes fail
// with a typed error, so deployments without a configured datastore still
// serve the public pages.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service is the content repository for case studies and their nested trees.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Filter narrows List results by access tier.
type Filter struct {
	FreeOnly   bool
	LockedOnly bool
}

// Input carries the full submitted shape of a case study. A nil Sections
// slice on update leaves the stored section tree untouched; a non-nil slice
// replaces it wholesale.
type Input struct {
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	Category        string         `json:"category"`
	Revenue         string         `json:"revenue"`
	Downloads       string         `json:"downloads"`
	FounderType     string         `json:"founder_type"`
	BusinessModel   string         `json:"business_model"`
	IsFree          bool           `json:"is_free"`
	Description     string         `json:"description"`
	AppIcon         string         `json:"app_icon"`
	Rating          float64        `json:"rating"`
	OnboardingSteps int            `json:"onboarding_steps"`
	Developer       string         `json:"developer"`
	Content         string         `json:"content"`
	PublishedAt     time.Time      `json:"published_at"`
	Sections        []SectionInput `json:"sections"`
}

// SectionInput is one submitted section with its ordered children.
type SectionInput struct {
	SectionID    string            `json:"section_id"`
	SectionLabel string            `json:"section_label"`
	IntroText    string            `json:"intro_text"`
	SortOrder    int               `json:"sort_order"`
	Accordions   []AccordionInput  `json:"accordions"`
	Screenshots  []ScreenshotInput `json:"screenshots"`
}

// AccordionInput is one submitted accordion.
type AccordionInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	DefaultOpen bool   `json:"default_open"`
	SortOrder   int    `json:"sort_order"`
}

// ScreenshotInput is one submitted screenshot. Ref is preserved when set so
// screen links survive a save; blank refs get a fresh identifier.
type ScreenshotInput struct {
	Ref       string `json:"ref"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
}

// List returns case studies ordered by published_at descending, each with
// sections, accordions and screenshots sorted ascending by sort_order.
//
// When the datastore is unconfigured or unreachable the result degrades to
// an empty slice; the failure is logged, never surfaced to the caller.
func (s *Service) List(ctx context.Context, filter Filter) []*CaseStudy {
	if s.db == nil {
		s.logger.Warn("catalog datastore not configured, returning empty list",
			zap.String("operation", opList))
		return []*CaseStudy{}
	}

	query := s.preloadTree(s.db.WithContext(ctx)).Order("published_at DESC")
	if filter.FreeOnly {
		query = query.Where("is_free = ?", true)
	}
	if filter.LockedOnly {
		query = query.Where("is_free = ?", false)
	}

	var studies []*CaseStudy
	if err := query.Find(&studies).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return []*CaseStudy{}
	}
	if studies == nil {
		studies = []*CaseStudy{}
	}
	return studies
}

// GetBySlug returns the case study published under the given slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*CaseStudy, error) {
	if s.db == nil {
		return nil, ErrNotFound
	}

	var study CaseStudy
	err := s.preloadTree(s.db.WithContext(ctx)).Where("slug = ?", slug).Take(&study).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opGetBySlug, "query_failed", err, zap.String("slug", slug))
		return nil, newServiceError(opGetBySlug, "query_failed", err)
	}
	return &study, nil
}

// GetByID returns the case study with the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (*CaseStudy, error) {
	if s.db == nil {
		return nil, ErrNotFound
	}

	var study CaseStudy
	err := s.preloadTree(s.db.WithContext(ctx)).Where("id = ?", id).Take(&study).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opGetByID, "query_failed", err, zap.String("case_study_id", id))
		return nil, newServiceError(opGetByID, "query_failed", err)
	}
	return &study, nil
}

// Create inserts a case study together with its section tree. The whole
// insert runs in one transaction: a failing child row rolls back the parent
// instead of silently dropping the section.
func (s *Service) Create(ctx context.Context, input Input) (*CaseStudy, error) {
	if s.db == nil {
		s.logError(opCreate, "missing_database", errMissingDatabase)
		return nil, newServiceError(opCreate, "missing_database", errMissingDatabase)
	}

	slug, err := NewSlug(input.Slug)
	if err != nil {
		return nil, newServiceError(opCreate, "invalid_slug", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return nil, newServiceError(opCreate, "id_generation_failed", err)
	}

	publishedAt := input.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.clock().UTC()
	}

	study := &CaseStudy{
		ID:              id,
		Slug:            slug.String(),
		Title:           input.Title,
		Category:        input.Category,
		Revenue:         input.Revenue,
		Downloads:       input.Downloads,
		FounderType:     input.FounderType,
		BusinessModel:   input.BusinessModel,
		IsFree:          input.IsFree,
		Description:     input.Description,
		AppIcon:         input.AppIcon,
		Rating:          input.Rating,
		OnboardingSteps: input.OnboardingSteps,
		Developer:       input.Developer,
		Content:         input.Content,
		PublishedAt:     publishedAt,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sections").Create(study).Error; err != nil {
			return newServiceError(opCreate, "case_study_insert_failed", err)
		}
		return s.insertSections(tx, opCreate, study.ID, input.Sections)
	})
	if txErr != nil {
		s.logError(opCreate, "transaction_failed", txErr, zap.String("slug", slug.String()))
		return nil, txErr
	}

	return s.GetByID(ctx, study.ID)
}

// Update rewrites the scalar fields of a case study. When input.Sections is
// non-nil the stored section tree is deleted and reinserted from the
// submitted state, all inside one transaction, so repeating the same input
// always converges to the same tree.
func (s *Service) Update(ctx context.Context, id string, input Input) (*CaseStudy, error) {
	if s.db == nil {
		s.logError(opUpdate, "missing_database", errMissingDatabase)
		return nil, newServiceError(opUpdate, "missing_database", errMissingDatabase)
	}

	slug, err := NewSlug(input.Slug)
	if err != nil {
		return nil, newServiceError(opUpdate, "invalid_slug", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := map[string]interface{}{
			"slug":             slug.String(),
			"title":            input.Title,
			"category":         input.Category,
			"revenue":          input.Revenue,
			"downloads":        input.Downloads,
			"founder_type":     input.FounderType,
			"business_model":   input.BusinessModel,
			"is_free":          input.IsFree,
			"description":      input.Description,
			"app_icon":         input.AppIcon,
			"rating":           input.Rating,
			"onboarding_steps": input.OnboardingSteps,
			"developer":        input.Developer,
			"content":          input.Content,
		}
		if !input.PublishedAt.IsZero() {
			columns["published_at"] = input.PublishedAt
		}

		result := tx.Model(&CaseStudy{}).Where("id = ?", id).Updates(columns)
		if result.Error != nil {
			return newServiceError(opUpdate, "case_study_update_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if input.Sections == nil {
			return nil
		}

		if err := tx.Where("case_study_id = ?", id).Delete(&Section{}).Error; err != nil {
			return newServiceError(opUpdate, "section_delete_failed", err)
		}
		return s.insertSections(tx, opUpdate, id, input.Sections)
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opUpdate, "transaction_failed", txErr, zap.String("case_study_id", id))
		}
		return nil, txErr
	}

	return s.GetByID(ctx, id)
}

// Delete removes a case study; the cascade constraints remove its subtree.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		s.logError(opDelete, "missing_database", errMissingDatabase)
		return newServiceError(opDelete, "missing_database", errMissingDatabase)
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&CaseStudy{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("case_study_id", id))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) insertSections(tx *gorm.DB, op, caseStudyID string, sections []SectionInput) error {
	for _, sectionInput := range sections {
		sectionID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(op, "id_generation_failed", err)
		}
		section := &Section{
			ID:           sectionID,
			CaseStudyID:  caseStudyID,
			SectionID:    sectionInput.SectionID,
			SectionLabel: sectionInput.SectionLabel,
			IntroText:    sectionInput.IntroText,
			SortOrder:    sectionInput.SortOrder,
		}
		if err := tx.Omit("Accordions", "Screenshots").Create(section).Error; err != nil {
			return newServiceError(op, "section_insert_failed", err)
		}

		for _, accordionInput := range sectionInput.Accordions {
			accordionID, err := s.idProvider.NewID()
			if err != nil {
				return newServiceError(op, "id_generation_failed", err)
			}
			accordion := &Accordion{
				ID:          accordionID,
				SectionID:   section.ID,
				Title:       accordionInput.Title,
				Content:     accordionInput.Content,
				DefaultOpen: accordionInput.DefaultOpen,
				SortOrder:   accordionInput.SortOrder,
			}
			if err := tx.Create(accordion).Error; err != nil {
				return newServiceError(op, "accordion_insert_failed", err)
			}
		}

		for _, screenshotInput := range sectionInput.Screenshots {
			screenshotID, err := s.idProvider.NewID()
			if err != nil {
				return newServiceError(op, "id_generation_failed", err)
			}
			ref := screenshotInput.Ref
			if ref == "" {
				ref, err = s.idProvider.NewID()
				if err != nil {
					return newServiceError(op, "id_generation_failed", err)
				}
			}
			screenshot := &Screenshot{
				ID:        screenshotID,
				SectionID: section.ID,
				Ref:       ref,
				URL:       screenshotInput.URL,
				Title:     screenshotInput.Title,
				SortOrder: screenshotInput.SortOrder,
			}
			if err := tx.Create(screenshot).Error; err != nil {
				return newServiceError(op, "screenshot_insert_failed", err)
			}
		}
	}
	return nil
}

// preloadTree attaches the ordered nested loads. The datastore does not
// guarantee insertion order, so every level sorts explicitly.
func (s *Service) preloadTree(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Sections.Accordions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Sections.Screenshots", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog service error", attrs...)
}
