package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"hour and a half", 5_400_000 * time.Millisecond, "1h 30m"},
		{"five minutes", 300_000 * time.Millisecond, "5m"},
		{"under a minute", 59 * time.Second, "0m"},
		{"zero", 0, "0m"},
		{"negative", -time.Minute, "0m"},
		{"exact hour", time.Hour, "1h 0m"},
		{"truncates seconds", 2*time.Hour + 59*time.Minute + 59*time.Second, "2h 59m"},
		{"full window", DefaultWindow, "6h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}
