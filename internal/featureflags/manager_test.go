package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,always=100%,never=0%,over=150%")

	tests := []struct {
		flag string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", false},
		{"always", true},
		{"never", false},
		{"over", true},
		{"missing", false},
		{" A ", true},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Enabled(tt.flag, 7))
		})
	}
}

func TestEnabled_PartialRollout(t *testing.T) {
	m := NewManager(FeedRetweetOrder + "=25%")

	first := m.Enabled(FeedRetweetOrder, 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled(FeedRetweetOrder, 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled(FeedRetweetOrder, 0))

	on := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled(FeedRetweetOrder, id) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=maybe,=on ")

	assert.Equal(t, []string{"x", "y", "z"}, m.Names())
	snap := m.Snapshot(123)
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(FeedRetweetOrder, 1))
	assert.Empty(t, m.Names())
}
