package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/store"
)

// DefaultCategory is used when a project is created without one.
const DefaultCategory = "General"

// Service handles project creation and read-side aggregation.
type Service struct {
	projects store.Table
	slots    store.Table
	logger   *slog.Logger
}

// NewService creates a new project service.
func NewService(projects, slots store.Table, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{projects: projects, slots: slots, logger: logger}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Title       string
	Description string
	Category    string
	Contact     Contact
}

// Create publishes a new project. Projects are immutable once created.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Contact.Email) == "" {
		return nil, ErrInvalidInput
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}

	proj := &Project{
		ID:          uuid.NewString(),
		Category:    category,
		Title:       req.Title,
		Description: req.Description,
		Contact:     req.Contact,
	}

	ent := &store.Entity{
		PartitionKey: proj.Category,
		RowKey:       proj.ID,
		Props: map[string]any{
			"Title":            proj.Title,
			"Description":      proj.Description,
			"ContactEmail":     proj.Contact.Email,
			"ContactFirstName": proj.Contact.FirstName,
			"ContactLastName":  proj.Contact.LastName,
			"ContactPhone":     proj.Contact.Phone,
		},
	}
	if _, err := s.projects.Insert(ctx, ent); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	return proj, nil
}

// List returns all projects across categories.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	ents, err := s.projects.Query(ctx, "", store.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	projects := make([]Project, 0, len(ents))
	for i := range ents {
		projects = append(projects, fromEntity(&ents[i]))
	}
	return projects, nil
}

// ListWithTotals returns all projects with their slot totals. A project
// whose slots can't be read gets zero totals rather than failing the whole
// listing.
func (s *Service) ListWithTotals(ctx context.Context) ([]Summary, error) {
	projects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(projects))
	for _, proj := range projects {
		summaries = append(summaries, Summary{
			Project: proj,
			Totals:  s.totalsFor(ctx, proj.ID),
		})
	}
	return summaries, nil
}

func (s *Service) totalsFor(ctx context.Context, projectID string) Totals {
	ents, err := s.slots.Query(ctx, projectID, store.QueryOptions{})
	if err != nil {
		s.logger.Warn("slot aggregation failed, reporting zero totals",
			"project", projectID, "error", err)
		return Totals{}
	}

	var t Totals
	for i := range ents {
		sl := slot.FromEntity(&ents[i])

		filled := sl.FilledCount
		if filled > sl.Capacity {
			filled = sl.Capacity
		}

		t.TotalSlots++
		t.TotalCapacity += sl.Capacity
		t.TotalFilled += filled
		if sl.Status == slot.StatusAvailable && sl.SpotsRemaining > 0 {
			t.HasOpenSlots = true
		}
	}
	t.SpotsRemaining = t.TotalCapacity - t.TotalFilled
	return t
}

func fromEntity(ent *store.Entity) Project {
	return Project{
		ID:          ent.RowKey,
		Category:    ent.PartitionKey,
		Title:       propString(ent.Props, "Title"),
		Description: propString(ent.Props, "Description"),
		Contact: Contact{
			Email:     propString(ent.Props, "ContactEmail"),
			FirstName: propString(ent.Props, "ContactFirstName"),
			LastName:  propString(ent.Props, "ContactLastName"),
			Phone:     propString(ent.Props, "ContactPhone"),
		},
	}
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
