// File: services/reservation/arbitrator.go
package reservation

import (
	"context"
	"fmt"
	"time"

	"voicedesk/config"
	"voicedesk/database/repository/reservation"
	"voicedesk/models"
	"voicedesk/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Arbitrator decides booking attempts with at-most-one-winner semantics per
// unit of remaining slot capacity.
type Arbitrator interface {
	CheckAndReserve(ctx context.Context, business *models.Business, callID string, draft models.ReservationDraft) (*models.ReserveOutcome, error)
}

// DefaultArbitrator implements Arbitrator on top of the reservation repository.
type DefaultArbitrator struct {
	Repo reservationRepo.ReservationRepo
}

// slotCapacity resolves the authoritative capacity: the per-business setting,
// falling back to the configured default when unset.
func slotCapacity(business *models.Business) int {
	if business.SlotCapacity > 0 {
		return business.SlotCapacity
	}
	return config.AppConfig.DefaultSlotCapacity
}

// CheckAndReserve reads current occupancy, then commits through the repo's
// atomic capacity-revalidated write. The pre-read only shapes the caller-facing
// reply; the commit revalidates so concurrent winners never exceed capacity.
func (a *DefaultArbitrator) CheckAndReserve(ctx context.Context, business *models.Business, callID string, draft models.ReservationDraft) (*models.ReserveOutcome, error) {
	if !draft.Complete() {
		return nil, fmt.Errorf("reservation draft incomplete")
	}

	capacity := slotCapacity(business)
	bucket := models.TimeBucket(draft.Time)

	occupancy, err := a.Repo.SlotOccupancy(ctx, business.ID, draft.Date, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to read slot occupancy: %w", err)
	}

	remaining := capacity - occupancy
	if remaining < draft.PartySize {
		utils.GetLogger().Info("reservation rejected, slot full",
			zap.String("businessId", business.ID),
			zap.String("date", draft.Date),
			zap.String("timeBucket", bucket),
			zap.Int("occupancy", occupancy),
			zap.Int("remaining", remaining))
		return &models.ReserveOutcome{Booked: false, Occupancy: occupancy, Remaining: remaining}, nil
	}

	res := &models.Reservation{
		ID:              uuid.New().String(),
		BusinessID:      business.ID,
		CallID:          callID,
		Date:            draft.Date,
		TimeBucket:      bucket,
		PartySize:       draft.PartySize,
		CustomerName:    draft.CustomerName,
		CustomerPhone:   draft.CustomerPhone,
		SpecialRequests: draft.SpecialRequests,
		Status:          models.ReservationPending,
		CreatedAt:       time.Now().UTC(),
	}

	won, err := a.Repo.CreateIfCapacity(ctx, res, capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	if !won {
		// Lost the race between the pre-read and the commit.
		occupancy, occErr := a.Repo.SlotOccupancy(ctx, business.ID, draft.Date, bucket)
		if occErr != nil {
			occupancy = capacity
		}
		remaining := capacity - occupancy
		if remaining < 0 {
			remaining = 0
		}
		return &models.ReserveOutcome{Booked: false, Occupancy: occupancy, Remaining: remaining}, nil
	}

	utils.GetLogger().Info("reservation committed",
		zap.String("businessId", business.ID),
		zap.String("reservationId", res.ID),
		zap.String("date", res.Date),
		zap.String("timeBucket", res.TimeBucket),
		zap.Int("partySize", res.PartySize))

	return &models.ReserveOutcome{Booked: true, Reservation: res, Occupancy: occupancy + draft.PartySize, Remaining: capacity - occupancy - draft.PartySize}, nil
}
