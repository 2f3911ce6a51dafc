package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yacnet/signupd/internal/store"
)

// Service handles administrative slot operations. Public signup traffic goes
// through the signup coordinator instead.
type Service struct {
	slots      store.Table
	volunteers store.Table
	logger     *slog.Logger
}

// NewService creates a new slot service.
func NewService(slots, volunteers store.Table, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{slots: slots, volunteers: volunteers, logger: logger}
}

// VolunteerPartition is the compound partition key holding a slot's
// volunteer signup records.
func VolunteerPartition(projectID, slotID string) string {
	return projectID + "|" + slotID
}

// List returns the normalized slots of a project in store order.
func (s *Service) List(ctx context.Context, projectID string) ([]Slot, error) {
	ents, err := s.slots.Query(ctx, projectID, store.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}

	slots := make([]Slot, 0, len(ents))
	for i := range ents {
		slots = append(slots, FromEntity(&ents[i]))
	}
	return slots, nil
}

// ListOpen returns the slots of a project still marked available.
func (s *Service) ListOpen(ctx context.Context, projectID string) ([]Slot, error) {
	ents, err := s.slots.Query(ctx, projectID, store.QueryOptions{
		Eq: map[string]string{"Status": string(StatusAvailable)},
	})
	if err != nil {
		return nil, fmt.Errorf("listing open slots: %w", err)
	}

	slots := make([]Slot, 0, len(ents))
	for i := range ents {
		slots = append(slots, FromEntity(&ents[i]))
	}
	return slots, nil
}

// Get fetches one normalized slot.
func (s *Service) Get(ctx context.Context, projectID, slotID string) (*Slot, error) {
	ent, err := s.slots.Get(ctx, projectID, slotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("getting slot: %w", err)
	}
	sl := FromEntity(ent)
	return &sl, nil
}

// CreateRequest defines slot creation inputs.
type CreateRequest struct {
	Task     string
	Date     string
	Time     string
	Capacity int
}

// Create creates a new available slot under a project.
func (s *Service) Create(ctx context.Context, projectID string, req CreateRequest) (*Slot, error) {
	if strings.TrimSpace(projectID) == "" ||
		strings.TrimSpace(req.Task) == "" ||
		strings.TrimSpace(req.Date) == "" ||
		strings.TrimSpace(req.Time) == "" {
		return nil, ErrInvalidInput
	}

	capacity := req.Capacity
	if capacity < 1 {
		capacity = 1
	}

	ent := &store.Entity{
		PartitionKey: projectID,
		RowKey:       uuid.NewString(),
		Props: map[string]any{
			"Task":        req.Task,
			"Date":        req.Date,
			"Time":        req.Time,
			"Status":      string(StatusAvailable),
			"Capacity":    capacity,
			"FilledCount": 0,
		},
	}

	etag, err := s.slots.Insert(ctx, ent)
	if err != nil {
		return nil, fmt.Errorf("creating slot: %w", err)
	}
	ent.ETag = etag

	sl := FromEntity(ent)
	return &sl, nil
}

// UpdateRequest defines an admin slot update. Nil pointers leave the field
// untouched. ClearVolunteer blanks the legacy volunteer fields.
type UpdateRequest struct {
	Task           *string
	Date           *string
	Time           *string
	Status         *string
	Capacity       *int
	Volunteer      *LegacyVolunteer
	ClearVolunteer bool
}

// Update merges the given fields into a slot, gated on the slot's current
// version token. Admin updates are the only path that can change a held
// slot's status.
func (s *Service) Update(ctx context.Context, projectID, slotID string, req UpdateRequest) (*Slot, error) {
	ent, err := s.slots.Get(ctx, projectID, slotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("getting slot for update: %w", err)
	}

	props := map[string]any{}
	if req.Task != nil {
		props["Task"] = *req.Task
	}
	if req.Date != nil {
		props["Date"] = *req.Date
	}
	if req.Time != nil {
		props["Time"] = *req.Time
	}
	if req.Status != nil {
		status := normalizeStatus(*req.Status)
		props["Status"] = string(status)
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return nil, ErrInvalidInput
		}
		props["Capacity"] = *req.Capacity
	}
	if req.Volunteer != nil {
		props["VolunteerEmail"] = req.Volunteer.Email
		props["VolunteerFirstName"] = req.Volunteer.FirstName
		props["VolunteerLastName"] = req.Volunteer.LastName
		props["VolunteerPhone"] = req.Volunteer.Phone
	} else if req.ClearVolunteer {
		props["VolunteerEmail"] = ""
		props["VolunteerFirstName"] = ""
		props["VolunteerLastName"] = ""
		props["VolunteerPhone"] = ""
	}

	if len(props) == 0 {
		return nil, ErrNoFields
	}

	update := &store.Entity{
		PartitionKey: projectID,
		RowKey:       slotID,
		Props:        props,
	}
	etag, err := s.slots.Update(ctx, update, store.Merge, ent.ETag)
	if err != nil {
		return nil, fmt.Errorf("updating slot: %w", err)
	}

	for k, v := range props {
		ent.Props[k] = v
	}
	ent.ETag = etag
	sl := FromEntity(ent)
	return &sl, nil
}

// Delete removes a slot record. Volunteer records under the compound
// partition are left in place, matching the public API's behavior; Purge
// removes them too.
func (s *Service) Delete(ctx context.Context, projectID, slotID string) error {
	if _, err := s.slots.Get(ctx, projectID, slotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("getting slot for deletion: %w", err)
	}

	if err := s.slots.Delete(ctx, projectID, slotID, ""); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("deleting slot: %w", err)
	}
	return nil
}

// Purge deletes a slot and every volunteer record in its compound partition.
func (s *Service) Purge(ctx context.Context, projectID, slotID string) error {
	if err := s.Delete(ctx, projectID, slotID); err != nil {
		return err
	}

	partition := VolunteerPartition(projectID, slotID)
	ents, err := s.volunteers.Query(ctx, partition, store.QueryOptions{})
	if err != nil {
		return fmt.Errorf("listing volunteers for purge: %w", err)
	}
	for i := range ents {
		err := s.volunteers.Delete(ctx, partition, ents[i].RowKey, "")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("purging volunteer %s: %w", ents[i].RowKey, err)
		}
	}

	s.logger.Info("purged slot", "project", projectID, "slot", slotID, "volunteers", len(ents))
	return nil
}
