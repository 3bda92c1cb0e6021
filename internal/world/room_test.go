package world

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/config"
	"github.com/embermud/server/internal/core/event"
)

func TestZoneKeyForRoom(t *testing.T) {
	tests := []struct {
		roomID string
		want   string
	}{
		{"ashfall/market/forge", "ashfall/market"},
		{"mirewood/deep/hollow", "mirewood/deep"},
		{"ashfall/market", "unknown/unknown"},
		{"ashfall", "unknown/unknown"},
		{"", "unknown/unknown"},
		{"a//c", "unknown/unknown"},
		{"/b/c", "unknown/unknown"},
		{"a/b/", "unknown/unknown"},
		{"a/b/c/d", "unknown/unknown"},
	}
	for _, tt := range tests {
		if got := ZoneKeyForRoom(tt.roomID); got != tt.want {
			t.Errorf("ZoneKeyForRoom(%q) = %q, want %q", tt.roomID, got, tt.want)
		}
	}
}

func TestRoom_NpcMutationsIdempotent(t *testing.T) {
	bus := event.NewBus()
	var entered, left int
	event.Subscribe(bus, func(event.NPCEnteredRoom) { entered++ })
	event.Subscribe(bus, func(event.NPCLeftRoom) { left++ })

	r := newRoom("ashfall/market/forge", bus)

	if !r.NpcEntered("npc_1") {
		t.Fatal("first NpcEntered() = false, want true")
	}
	if r.NpcEntered("npc_1") {
		t.Error("second NpcEntered() = true, want false")
	}
	if !r.ContainsNPC("npc_1") {
		t.Error("ContainsNPC() = false after enter")
	}
	if r.NPCCount() != 1 {
		t.Errorf("NPCCount() = %d, want 1", r.NPCCount())
	}

	if !r.NpcLeft("npc_1") {
		t.Fatal("first NpcLeft() = false, want true")
	}
	if r.NpcLeft("npc_1") {
		t.Error("second NpcLeft() = true, want false")
	}
	if r.NpcLeft("never_there") {
		t.Error("NpcLeft() for absent npc = true, want false")
	}

	bus.Pump()
	if entered != 1 {
		t.Errorf("NPCEnteredRoom events = %d, want exactly 1", entered)
	}
	if left != 1 {
		t.Errorf("NPCLeftRoom events = %d, want exactly 1", left)
	}
}

func newTestState() *State {
	bus := event.NewBus()
	return NewState(bus, config.WorldConfig{}, zap.NewNop())
}

func TestState_MovePlayerTracksZones(t *testing.T) {
	s := newTestState()
	s.AddRoom("ashfall/market/forge")
	s.AddRoom("mirewood/deep/hollow")

	s.MovePlayer("p1", "ashfall/market/forge")
	if got := s.PlayersInZone("ashfall/market"); got != 1 {
		t.Fatalf("PlayersInZone(ashfall/market) = %d, want 1", got)
	}
	if got := s.GetRoom("ashfall/market/forge").PlayerCount(); got != 1 {
		t.Errorf("PlayerCount() = %d, want 1", got)
	}

	s.MovePlayer("p1", "mirewood/deep/hollow")
	if got := s.PlayersInZone("ashfall/market"); got != 0 {
		t.Errorf("PlayersInZone(ashfall/market) after leave = %d, want 0", got)
	}
	if got := s.PlayersInZone("mirewood/deep"); got != 1 {
		t.Errorf("PlayersInZone(mirewood/deep) = %d, want 1", got)
	}

	// Empty room id removes the player from the world entirely.
	s.MovePlayer("p1", "")
	if got := s.PlayersInZone("mirewood/deep"); got != 0 {
		t.Errorf("PlayersInZone(mirewood/deep) after removal = %d, want 0", got)
	}
}

func TestState_MovePlayerUnknownRoom(t *testing.T) {
	s := newTestState()
	s.AddRoom("ashfall/market/forge")
	s.MovePlayer("p1", "ashfall/market/forge")

	// Moving into an unknown room leaves the old room but does not register
	// a new location.
	s.MovePlayer("p1", "limbo/void/pit")
	if got := s.PlayersInZone("ashfall/market"); got != 0 {
		t.Errorf("PlayersInZone() after bad move = %d, want 0", got)
	}
}

func TestState_Clock(t *testing.T) {
	s := newTestState()
	if got := s.Hour(); got != 0 {
		t.Fatalf("Hour() at boot = %d, want 0", got)
	}

	s.SetHour(13)
	if got := s.Hour(); got != 13 {
		t.Errorf("Hour() after SetHour(13) = %d, want 13", got)
	}

	// Default in-game day is 2h real time: 5 real minutes is one hour.
	s.SetHour(23)
	s.AdvanceClock(10 * time.Minute)
	if got := s.Hour(); got != 1 {
		t.Errorf("Hour() after wrap = %d, want 1", got)
	}
}
