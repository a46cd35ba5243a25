// File: services/reservation/arbitrator_test.go
package reservation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicedesk/models"
)

// memReservationRepo revalidates capacity under a single lock, mirroring the
// transactional guard of the Mongo implementation.
type memReservationRepo struct {
	mu           sync.Mutex
	reservations []*models.Reservation
}

func (m *memReservationRepo) occupancyLocked(businessID, date, bucket string) int {
	total := 0
	for _, r := range m.reservations {
		if r.BusinessID == businessID && r.Date == date && r.TimeBucket == bucket &&
			(r.Status == models.ReservationPending || r.Status == models.ReservationConfirmed) {
			total += r.PartySize
		}
	}
	return total
}

func (m *memReservationRepo) SlotOccupancy(ctx context.Context, businessID, date, timeBucket string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupancyLocked(businessID, date, timeBucket), nil
}

func (m *memReservationRepo) CreateIfCapacity(ctx context.Context, res *models.Reservation, capacity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	occ := m.occupancyLocked(res.BusinessID, res.Date, res.TimeBucket)
	if occ+res.PartySize > capacity {
		return false, nil
	}
	m.reservations = append(m.reservations, res)
	return true, nil
}

func slotBusiness(capacity int) *models.Business {
	return &models.Business{ID: "biz-1", Name: "Marco's Trattoria", SlotCapacity: capacity}
}

func completeDraft(party int) models.ReservationDraft {
	return models.ReservationDraft{
		Date:         "2026-03-06",
		Time:         "19:00",
		PartySize:    party,
		CustomerName: "Anna",
	}
}

func TestCheckAndReserveIncompleteDraft(t *testing.T) {
	arb := &DefaultArbitrator{Repo: &memReservationRepo{}}

	_, err := arb.CheckAndReserve(context.Background(), slotBusiness(50), "CA-1",
		models.ReservationDraft{Date: "2026-03-06", PartySize: 2})
	assert.Error(t, err)
}

func TestCheckAndReserveBooks(t *testing.T) {
	repo := &memReservationRepo{}
	arb := &DefaultArbitrator{Repo: repo}

	out, err := arb.CheckAndReserve(context.Background(), slotBusiness(50), "CA-1", completeDraft(4))
	require.NoError(t, err)

	require.True(t, out.Booked)
	require.NotNil(t, out.Reservation)
	assert.Equal(t, "19:00", out.Reservation.TimeBucket)
	assert.Equal(t, models.ReservationPending, out.Reservation.Status)
	assert.Equal(t, "CA-1", out.Reservation.CallID)
	assert.Equal(t, 4, out.Occupancy)
	assert.Equal(t, 46, out.Remaining)
}

func TestCheckAndReserveSlotFull(t *testing.T) {
	repo := &memReservationRepo{}
	arb := &DefaultArbitrator{Repo: repo}
	ctx := context.Background()

	out, err := arb.CheckAndReserve(ctx, slotBusiness(10), "CA-1", completeDraft(8))
	require.NoError(t, err)
	require.True(t, out.Booked)

	out, err = arb.CheckAndReserve(ctx, slotBusiness(10), "CA-2", completeDraft(4))
	require.NoError(t, err)
	assert.False(t, out.Booked)
	assert.Nil(t, out.Reservation)
	assert.Equal(t, 8, out.Occupancy)
	assert.Equal(t, 2, out.Remaining)
}

func TestCheckAndReserveBucketsShareCapacity(t *testing.T) {
	repo := &memReservationRepo{}
	arb := &DefaultArbitrator{Repo: repo}
	ctx := context.Background()

	first := completeDraft(8)
	first.Time = "19:10"
	out, err := arb.CheckAndReserve(ctx, slotBusiness(10), "CA-1", first)
	require.NoError(t, err)
	require.True(t, out.Booked)

	// 19:20 floors into the same 19:00 bucket as 19:10.
	second := completeDraft(4)
	second.Time = "19:20"
	out, err = arb.CheckAndReserve(ctx, slotBusiness(10), "CA-2", second)
	require.NoError(t, err)
	assert.False(t, out.Booked)

	// 19:30 is a fresh bucket.
	third := completeDraft(4)
	third.Time = "19:30"
	out, err = arb.CheckAndReserve(ctx, slotBusiness(10), "CA-3", third)
	require.NoError(t, err)
	assert.True(t, out.Booked)
}

func TestCheckAndReserveConcurrentSingleWinner(t *testing.T) {
	// Two callers race for the last seats: capacity 50, two parties of 30.
	// Exactly one may win.
	repo := &memReservationRepo{}
	arb := &DefaultArbitrator{Repo: repo}
	business := slotBusiness(50)

	var wg sync.WaitGroup
	outcomes := make([]*models.ReserveOutcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := arb.CheckAndReserve(context.Background(), business, "CA-race", completeDraft(30))
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	booked := 0
	for _, out := range outcomes {
		if out.Booked {
			booked++
		}
	}
	assert.Equal(t, 1, booked, "exactly one concurrent booking may win")
}

func TestCheckAndReserveOccupancyNeverExceedsCapacity(t *testing.T) {
	const (
		capacity = 40
		callers  = 25
		party    = 4
	)
	repo := &memReservationRepo{}
	arb := &DefaultArbitrator{Repo: repo}
	business := slotBusiness(capacity)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := arb.CheckAndReserve(context.Background(), business, "CA-prop", completeDraft(party))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	committed, err := repo.SlotOccupancy(context.Background(), business.ID, "2026-03-06", "19:00")
	require.NoError(t, err)
	assert.LessOrEqual(t, committed, capacity)
	assert.Equal(t, capacity, committed, "winners fill the slot exactly when party size divides capacity")
}
