package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(time.UTC)

	tests := []struct {
		name      string
		input     string
		role      Role
		want      time.Time
		wantError bool
	}{
		{
			name:  "date only as start defaults to midnight",
			input: "2023-06-01",
			role:  RoleStart,
			want:  time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "date only as end covers whole day",
			input: "2023-06-01",
			role:  RoleEnd,
			want:  time.Date(2023, 6, 1, 23, 59, 59, 0, time.UTC),
		},
		{
			name:  "T separator keeps exact instant",
			input: "2023-06-01T14:30:00",
			role:  RoleStart,
			want:  time.Date(2023, 6, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "space separator keeps exact instant",
			input: "2023-06-01 14:30:00",
			role:  RoleEnd,
			want:  time.Date(2023, 6, 1, 14, 30, 0, 0, time.UTC),
		},
		{name: "empty invalid", input: "", role: RoleStart, wantError: true},
		{name: "slashes invalid", input: "2023/06/01", role: RoleStart, wantError: true},
		{name: "missing seconds invalid", input: "2023-06-01 14:30", role: RoleStart, wantError: true},
		{name: "garbage invalid", input: "yesterday", role: RoleEnd, wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Parse(tc.input, tc.role)
			if tc.wantError {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidTimeFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParser_ParseUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	p := NewParser(loc)

	got, err := p.Parse("2023-06-01 08:00:00", RoleStart)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 6, 1, 8, 0, 0, 0, loc), got)
	require.Equal(t, loc, got.Location())
}

func TestParser_NilLocationFallsBackToLocal(t *testing.T) {
	p := NewParser(nil)
	require.Equal(t, time.Local, p.Location())
}
