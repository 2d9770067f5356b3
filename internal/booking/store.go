// Package booking holds the shared table-availability state and the
// bookings created against it. The Store is the only state shared across
// call sessions.
package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goldenspoon/voiceline/internal/model"
)

// ErrSlotUnavailable indicates the slot lacks capacity for the requested
// party. It is a normal conversational outcome, not a fault.
var ErrSlotUnavailable = errors.New("slot unavailable")

type slotKey struct {
	date string
	time string
}

// slot guards one (date, time) bucket. Check-and-reserve runs entirely
// under the slot mutex so concurrent bookings can never overcommit.
type slot struct {
	mu       sync.Mutex
	total    int
	reserved int
}

// Store holds availability slots and confirmed bookings in memory. It
// resets on process restart.
type Store struct {
	mu       sync.Mutex
	slots    map[slotKey]*slot
	bookings []*model.Booking
	byConf   map[string]*model.Booking
	seq      int

	defaultCapacity int
}

// NewStore creates a store where unseen (date, time) pairs start with the
// given default capacity.
func NewStore(defaultCapacity int) *Store {
	return &Store{
		slots:           make(map[slotKey]*slot),
		byConf:          make(map[string]*model.Booking),
		defaultCapacity: defaultCapacity,
	}
}

// getSlot returns the slot for (date, time), creating a default-capacity
// slot on first reference.
func (s *Store) getSlot(date, tm string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{date: date, time: tm}
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{total: s.defaultCapacity}
		s.slots[key] = sl
	}
	return sl
}

// Availability reports whether the slot can seat the requested party and
// how many seats remain.
func (s *Store) Availability(date, tm string, guests int) (remaining int, available bool) {
	sl := s.getSlot(date, tm)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	remaining = sl.total - sl.reserved
	return remaining, guests <= remaining
}

// SetCapacity overrides a slot's total capacity. Existing reservations are
// kept; capacity below the reserved count is rejected to preserve the
// store invariant.
func (s *Store) SetCapacity(date, tm string, total int) error {
	sl := s.getSlot(date, tm)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if total < sl.reserved {
		return fmt.Errorf("capacity %d below reserved %d", total, sl.reserved)
	}
	sl.total = total
	return nil
}

// Reserve atomically checks capacity and records a booking. On success it
// returns the booking and the seats remaining afterwards; on insufficient
// capacity it returns ErrSlotUnavailable together with the current
// remaining count.
func (s *Store) Reserve(name, phone, date, tm string, guests int, specialRequests string) (*model.Booking, int, error) {
	sl := s.getSlot(date, tm)

	sl.mu.Lock()
	remaining := sl.total - sl.reserved
	if guests > remaining {
		sl.mu.Unlock()
		return nil, remaining, ErrSlotUnavailable
	}
	sl.reserved += guests
	remaining = sl.total - sl.reserved
	sl.mu.Unlock()

	s.mu.Lock()
	s.seq++
	b := &model.Booking{
		ConfirmationID:  fmt.Sprintf("BOOK%04d", s.seq),
		Name:            name,
		Phone:           phone,
		Date:            date,
		Time:            tm,
		Guests:          guests,
		SpecialRequests: specialRequests,
		CreatedAt:       time.Now(),
	}
	s.bookings = append(s.bookings, b)
	s.byConf[b.ConfirmationID] = b
	s.mu.Unlock()

	return b, remaining, nil
}

// Lookup returns the booking for a confirmation ID.
func (s *Store) Lookup(confirmationID string) (*model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byConf[confirmationID]
	return b, ok
}

// TotalBookings returns the number of confirmed bookings.
func (s *Store) TotalBookings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Slot returns a snapshot of one availability slot.
func (s *Store) Slot(date, tm string) model.AvailabilitySlot {
	sl := s.getSlot(date, tm)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	return model.AvailabilitySlot{
		Date:             date,
		Time:             tm,
		CapacityTotal:    sl.total,
		CapacityReserved: sl.reserved,
	}
}
