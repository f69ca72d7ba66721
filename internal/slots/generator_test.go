package slots

import (
	"context"
	"testing"
	"time"

	"courtside/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ConfirmedCourtBookings(ctx context.Context, courtID int64, start, end time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, courtID, start, end)
	return args.Get(0).([]models.Booking), args.Error(1)
}

var day = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func TestDaySlotsEmptyDay(t *testing.T) {
	source := new(mockSource)
	source.On("ConfirmedCourtBookings", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]models.Booking(nil), nil)

	slots, err := NewGenerator(source, DefaultHours()).DaySlots(context.Background(), 1, day)
	require.NoError(t, err)
	require.Len(t, slots, 12)

	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, time.Date(2026, 9, 7, 21, 0, 0, 0, time.UTC), slots[11].EndTime)
	for _, s := range slots {
		assert.True(t, s.Available)
	}
}

func TestDaySlotsMarksBookedHours(t *testing.T) {
	source := new(mockSource)
	// 10:30-12:30 booking touches the 10, 11 and 12 o'clock slots.
	source.On("ConfirmedCourtBookings", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]models.Booking{{
			ID:        1,
			CourtID:   1,
			StartTime: time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 9, 7, 12, 30, 0, 0, time.UTC),
		}}, nil)

	slots, err := NewGenerator(source, DefaultHours()).DaySlots(context.Background(), 1, day)
	require.NoError(t, err)
	require.Len(t, slots, 12)

	for i, s := range slots {
		hour := 9 + i
		wantAvailable := hour < 10 || hour > 12
		assert.Equalf(t, wantAvailable, s.Available, "slot starting at %02d:00", hour)
	}
}

func TestDaySlotsBookingEndingOnBoundary(t *testing.T) {
	source := new(mockSource)
	// Half-open intervals: a booking ending at 10:00 leaves the 10:00
	// slot free.
	source.On("ConfirmedCourtBookings", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]models.Booking{{
			ID:        1,
			CourtID:   1,
			StartTime: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		}}, nil)

	slots, err := NewGenerator(source, DefaultHours()).DaySlots(context.Background(), 1, day)
	require.NoError(t, err)
	assert.False(t, slots[0].Available)
	assert.True(t, slots[1].Available)
}

func TestNewGeneratorDefaults(t *testing.T) {
	source := new(mockSource)
	source.On("ConfirmedCourtBookings", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]models.Booking(nil), nil)

	g := NewGenerator(source, Hours{})
	slots, err := g.DaySlots(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Len(t, slots, 12)
}

func TestToSlotInfo(t *testing.T) {
	infos := ToSlotInfo([]Slot{{
		StartTime: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		Available: true,
	}})
	require.Len(t, infos, 1)
	assert.Equal(t, SlotInfo{Start: "09:00", End: "10:00", Available: true}, infos[0])
}
