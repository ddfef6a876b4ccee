package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-03-01", want: "2024-03-01"},
		{in: " 2024-03-01 ", want: "2024-03-01"},
		{in: "2024-03-01T18:45:00Z", want: "2024-03-01"},
		{in: "2024-03-01T23:30:00-05:00", want: "2024-03-02"},
		{in: "", wantErr: true},
		{in: "01/03/2024", wantErr: true},
		{in: "2024-13-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in, time.UTC)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatDay(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDayRange(t *testing.T) {
	from, to := DayRange(time.Date(2024, 2, 28, 17, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, date(2024, 2, 28), from)
	assert.Equal(t, date(2024, 2, 29), to)
}

func TestDayUsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*60*60+30*60)
	instant := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 3, 1), Day(instant, time.UTC))
	assert.Equal(t, date(2024, 3, 2), Day(instant, ist))
	assert.Equal(t, Day(instant, time.UTC), Day(instant, nil))
}
