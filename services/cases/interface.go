// Package cases serves the case catalogue, case notes and legal search.
package cases

import (
	"context"
	"errors"
	"strings"

	casesRepo "courtwise/database/repository/cases"
	"courtwise/models"
	"courtwise/services/quota"

	"go.uber.org/zap"
)

var (
	ErrCaseNotFound = errors.New("case not found")
	ErrEmptyNote    = errors.New("note content is required")
)

// Viewer is the entitlement side of a client session.
type Viewer interface {
	Key() string
	RemainingCases() quota.Remaining
	DecrementRemainingCases(ctx context.Context) (quota.Remaining, bool, error)
	// ViewGrant is who a view would be charged to now; false for guests.
	ViewGrant() (Grant, bool)
}

// CaseService browses the catalogue and gates protected case content.
type CaseService interface {
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error)
	Preview(ctx context.Context, id string) (*models.Case, error)
	Open(ctx context.Context, viewer Viewer, id string) (*models.Case, quota.Remaining, error)
	DownloadURL(ctx context.Context, viewer Viewer, role models.Role, id string) (string, error)

	ListNotes(ctx context.Context, userID, caseID string) ([]models.CaseNote, error)
	AddNote(ctx context.Context, userID, caseID, content string) (*models.CaseNote, error)
	EditNote(ctx context.Context, userID, noteID, content string) (*models.CaseNote, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
}

// DefaultCaseService is the production implementation.
type DefaultCaseService struct {
	Cases   casesRepo.CaseRepository
	Notes   casesRepo.NoteRepository
	Tracker *ViewTracker
	Logger  *zap.Logger
}

func NewCaseService(cases casesRepo.CaseRepository, notes casesRepo.NoteRepository, tracker *ViewTracker, logger *zap.Logger) *DefaultCaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewViewTracker()
	}
	return &DefaultCaseService{Cases: cases, Notes: notes, Tracker: tracker, Logger: logger}
}

// List returns previews of the catalogue entries matching filter.
func (s *DefaultCaseService) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error) {
	all, err := s.Cases.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := Filter(all, filter)
	for i := range matched {
		matched[i] = matched[i].Preview()
	}
	return matched, nil
}

// Preview returns a case without its protected content.
func (s *DefaultCaseService) Preview(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := c.Preview()
	return &p, nil
}

// Open returns the full case, consuming one view of the daily allowance
// unless the viewer is already on this case.
func (s *DefaultCaseService) Open(ctx context.Context, viewer Viewer, id string) (*models.Case, quota.Remaining, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	remaining, err := s.Tracker.Consume(ctx, viewer, id)
	if err != nil {
		return nil, remaining, err
	}
	return c, remaining, nil
}

// DownloadURL returns the document link of a case. Metered viewers may only
// download the case they currently have open.
func (s *DefaultCaseService) DownloadURL(ctx context.Context, viewer Viewer, role models.Role, id string) (string, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if role.Metered() && !s.Tracker.Covers(viewer, id) {
		return "", quota.ErrQuotaExhausted
	}
	return c.DocumentURL, nil
}

func (s *DefaultCaseService) ListNotes(ctx context.Context, userID, caseID string) ([]models.CaseNote, error) {
	return s.Notes.ListByCase(ctx, userID, caseID)
}

func (s *DefaultCaseService) AddNote(ctx context.Context, userID, caseID, content string) (*models.CaseNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyNote
	}
	if _, err := s.get(ctx, caseID); err != nil {
		return nil, err
	}
	note := &models.CaseNote{UserID: userID, CaseID: caseID, Content: content}
	if err := s.Notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *DefaultCaseService) EditNote(ctx context.Context, userID, noteID, content string) (*models.CaseNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyNote
	}
	return s.Notes.Update(ctx, userID, noteID, content)
}

func (s *DefaultCaseService) DeleteNote(ctx context.Context, userID, noteID string) error {
	return s.Notes.Delete(ctx, userID, noteID)
}

func (s *DefaultCaseService) get(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.Cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}
