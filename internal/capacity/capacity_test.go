package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

func TestOccupied_CountsOnlyConfirmedAndCheckedIn(t *testing.T) {
	tickets := []model.Ticket{
		{Status: model.TicketPending, Quantity: 4},
		{Status: model.TicketConfirmed, Quantity: 2},
		{Status: model.TicketCheckedIn, Quantity: 3},
		{Status: model.TicketCancelled, Quantity: 5},
	}
	assert.Equal(t, 5, Occupied(tickets))
	assert.Equal(t, 0, Occupied(nil))
}

func TestRemainingAndPercentage(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		occupied int
		wantRem  int
		wantPct  int
	}{
		{"empty", 10, 0, 10, 0},
		{"partial", 3, 1, 2, 33},
		{"rounds half up", 8, 1, 7, 13},
		{"full", 2, 2, 0, 100},
		{"overbooked clamps", 2, 5, 0, 100},
		{"zero capacity", 0, 0, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRem, Remaining(tt.max, tt.occupied))
			assert.Equal(t, tt.wantPct, Percentage(tt.max, tt.occupied))
		})
	}
}

func TestRemaining_SumsToCapacity(t *testing.T) {
	for occ := 0; occ <= 20; occ++ {
		rem := Remaining(20, occ)
		assert.GreaterOrEqual(t, rem, 0)
		assert.LessOrEqual(t, rem, 20)
		assert.Equal(t, 20, occ+rem)
	}
}

func TestFor(t *testing.T) {
	ev := &model.Event{MaxCapacity: 2}
	a := For(ev, 2)
	assert.Equal(t, Availability{MaxCapacity: 2, Occupied: 2, Remaining: 0, Percentage: 100, SoldOut: true}, a)

	a = For(ev, 1)
	assert.False(t, a.SoldOut)
	assert.Equal(t, 1, a.Remaining)
	assert.Equal(t, 50, a.Percentage)
}
