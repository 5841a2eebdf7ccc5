package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForEarned(t *testing.T) {
	tests := []struct {
		name      string
		earned    int
		wantLevel int
		wantPct   int
	}{
		{"negative clamps to zero", -10, 1, 0},
		{"fresh user", 0, 1, 0},
		{"halfway to level two", 25, 1, 50},
		{"exactly at threshold", 50, 2, 0},
		{"mid level two", 125, 2, 50},
		{"top level is capped", 9000, 6, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := LevelForEarned(tt.earned)
			assert.Equal(t, tt.wantLevel, level.Number)
			assert.Equal(t, tt.wantPct, level.ProgressPct)
		})
	}
}
