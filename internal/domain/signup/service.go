// Package signup implements the signup and withdrawal coordinators: the
// multi-step writes that keep a slot's counters and its volunteer records
// consistent without overselling capacity.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/store"
)

// Service coordinates signups and withdrawals against the slot and
// volunteer tables. It holds no in-process state between requests; all
// cross-request coordination rides on the store's etag-conditioned writes.
type Service struct {
	slots      store.Table
	volunteers store.Table
	logger     *slog.Logger
	metrics    *serviceMetrics
	now        func() time.Time
}

// NewService creates a new signup coordinator. registry may be nil.
func NewService(slots, volunteers store.Table, logger *slog.Logger, registry prometheus.Registerer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		slots:      slots,
		volunteers: volunteers,
		logger:     logger,
		metrics:    newServiceMetrics(registry),
		now:        time.Now,
	}
}

// Signup registers a volunteer for a slot.
//
// The volunteer record is written first, then the slot's counters are
// updated gated on the version token from the initial read. If the slot
// moved on in between, the volunteer record is deleted again before the
// error surfaces: a rejected signup never leaves an orphan record behind.
func (s *Service) Signup(ctx context.Context, projectID, slotID string, req NewVolunteer) (*SignupResult, error) {
	if strings.TrimSpace(req.FirstName) == "" ||
		strings.TrimSpace(req.LastName) == "" ||
		strings.TrimSpace(req.Email) == "" {
		return nil, ErrInvalidInput
	}

	ent, err := s.slots.Get(ctx, projectID, slotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, slot.ErrSlotNotFound
		}
		return nil, fmt.Errorf("getting slot: %w", err)
	}
	sl := slot.FromEntity(ent)

	// A held slot is unavailable no matter what its counters say.
	if sl.Status == slot.StatusHeld {
		s.metrics.signupsRejectedFull.Inc()
		return nil, ErrSlotFull
	}

	partition := slot.VolunteerPartition(projectID, slotID)
	filled := s.currentFilled(ctx, partition, sl.FilledCount)
	if filled >= sl.Capacity {
		s.metrics.signupsRejectedFull.Inc()
		return nil, ErrSlotFull
	}

	signedUp := s.now().UTC().Format(time.RFC3339)
	volEnt := &store.Entity{
		PartitionKey: partition,
		RowKey:       newRowKey(s.now()),
		Props: map[string]any{
			"ProjectId":   projectID,
			"SlotId":      slotID,
			"FirstName":   req.FirstName,
			"LastName":    req.LastName,
			"Email":       req.Email,
			"Phone":       req.Phone,
			"SignedUpUtc": signedUp,
		},
	}
	if _, err := s.volunteers.Insert(ctx, volEnt); err != nil {
		return nil, fmt.Errorf("creating volunteer record: %w", err)
	}

	nextFilled := filled + 1
	nextStatus := slot.NextStatus(sl.Status, nextFilled, sl.Capacity)

	update := &store.Entity{
		PartitionKey: projectID,
		RowKey:       slotID,
		Props: map[string]any{
			"FilledCount":            nextFilled,
			"Status":                 string(nextStatus),
			"LastVolunteerSignupUtc": signedUp,
		},
	}
	if _, err := s.slots.Update(ctx, update, store.Merge, ent.ETag); err != nil {
		s.compensate(ctx, partition, volEnt.RowKey)
		if store.IsConflict(err) {
			s.metrics.signupConflicts.Inc()
			s.logger.Warn("slot update lost race, volunteer record rolled back",
				"project", projectID, "slot", slotID)
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("updating slot counters: %w", err)
	}

	s.metrics.signupsAccepted.Inc()

	sl.FilledCount = nextFilled
	sl.Status = nextStatus
	sl.SpotsRemaining = remaining(sl.Capacity, nextFilled)
	return &SignupResult{
		Slot:      sl,
		Volunteer: volunteerFromEntity(volEnt),
	}, nil
}

// Withdraw removes a volunteer signup and decrements the slot's counters.
//
// The failure mode here is deliberately asymmetric to Signup: once the
// volunteer record is deleted it stays deleted. If the slot-side update
// then fails, the result is flagged CountsStale instead of resurrecting
// the record, so a withdrawn volunteer is never counted again.
func (s *Service) Withdraw(ctx context.Context, projectID, slotID, volunteerID string) (*WithdrawResult, error) {
	partition := slot.VolunteerPartition(projectID, slotID)

	volEnt, err := s.volunteers.Get(ctx, partition, volunteerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVolunteerNotFound
		}
		return nil, fmt.Errorf("getting volunteer record: %w", err)
	}
	vol := volunteerFromEntity(volEnt)

	if err := s.volunteers.Delete(ctx, partition, volunteerID, volEnt.ETag); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVolunteerNotFound
		}
		return nil, fmt.Errorf("deleting volunteer record: %w", err)
	}
	s.metrics.withdrawals.Inc()

	result := &WithdrawResult{Volunteer: vol}

	slotEnt, err := s.slots.Get(ctx, projectID, slotID)
	if err != nil {
		s.markStale(result, projectID, slotID, err)
		return result, nil
	}
	sl := slot.FromEntity(slotEnt)

	nextFilled := sl.FilledCount - 1
	if nextFilled < 0 {
		nextFilled = 0
	}
	nextStatus := slot.NextStatus(sl.Status, nextFilled, sl.Capacity)

	update := &store.Entity{
		PartitionKey: projectID,
		RowKey:       slotID,
		Props: map[string]any{
			"FilledCount": nextFilled,
			"Status":      string(nextStatus),
		},
	}
	if _, err := s.slots.Update(ctx, update, store.Merge, slotEnt.ETag); err != nil {
		s.markStale(result, projectID, slotID, err)
		return result, nil
	}

	sl.FilledCount = nextFilled
	sl.Status = nextStatus
	sl.SpotsRemaining = remaining(sl.Capacity, nextFilled)
	result.Slot = &sl
	return result, nil
}

// ListVolunteers returns a slot's signups ordered by signup time.
func (s *Service) ListVolunteers(ctx context.Context, projectID, slotID string) ([]Volunteer, error) {
	partition := slot.VolunteerPartition(projectID, slotID)
	ents, err := s.volunteers.Query(ctx, partition, store.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing volunteers: %w", err)
	}

	volunteers := make([]Volunteer, 0, len(ents))
	for i := range ents {
		volunteers = append(volunteers, volunteerFromEntity(&ents[i]))
	}

	// ISO timestamps sort lexicographically; empty strings sort first.
	sort.SliceStable(volunteers, func(i, j int) bool {
		return volunteers[i].SignedUpUtc < volunteers[j].SignedUpUtc
	})

	return volunteers, nil
}

// currentFilled counts the slot's volunteer records, which survives counter
// drift on the slot itself. Only if the enumeration fails does the stored
// counter stand in.
func (s *Service) currentFilled(ctx context.Context, partition string, storedCount int) int {
	ents, err := s.volunteers.Query(ctx, partition, store.QueryOptions{})
	if err != nil {
		s.logger.Warn("volunteer enumeration failed, falling back to stored counter",
			"partition", partition, "error", err)
		return storedCount
	}
	return len(ents)
}

// compensate removes the volunteer record created by a signup whose slot
// update failed. Best effort: an already-absent record counts as undone, any
// other failure is logged and the original error still surfaces.
func (s *Service) compensate(ctx context.Context, partition, rowKey string) {
	s.metrics.compensations.Inc()
	err := s.volunteers.Delete(ctx, partition, rowKey, "")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.metrics.compensationFailures.Inc()
		s.logger.Error("failed to remove volunteer record during rollback",
			"partition", partition, "row", rowKey, "error", err)
	}
}

func (s *Service) markStale(result *WithdrawResult, projectID, slotID string, err error) {
	s.metrics.withdrawalsStale.Inc()
	s.logger.Warn("slot counters not updated after volunteer removal",
		"project", projectID, "slot", slotID, "error", err)
	result.CountsStale = true
}

// newRowKey builds a time-ordered unique row key. The timestamp prefix keeps
// volunteer records enumerable in signup order without a separate index.
func newRowKey(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d_%s", now.UnixMilli(), suffix)
}

func remaining(capacity, filled int) int {
	if r := capacity - filled; r > 0 {
		return r
	}
	return 0
}
