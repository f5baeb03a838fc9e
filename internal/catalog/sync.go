package catalog

import (
	"context"
	"errors"
)

var errMissingService = errors.New("catalog: synchronizer requires a service")

// Synchronizer persists editor drafts. Submit routes to Create or Update
// and leaves the draft untouched on failure so the editor can retry
// without data loss.
type Synchronizer struct {
	service *Service
}

// NewSynchronizer constructs a Synchronizer on top of the repository.
func NewSynchronizer(service *Service) (*Synchronizer, error) {
	if service == nil {
		return nil, errMissingService
	}
	return &Synchronizer{service: service}, nil
}

// Submit validates and normalizes the draft, then creates a new case study
// or fully replaces the one identified by existingID. The returned tree is
// the persisted state re-read from the repository.
func (s *Synchronizer) Submit(ctx context.Context, draft Draft, existingID string) (*CaseStudy, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	input := draft.Normalize().Input()
	if existingID == "" {
		return s.service.Create(ctx, input)
	}
	return s.service.Update(ctx, existingID, input)
}
