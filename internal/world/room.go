package world

import (
	"strings"

	"github.com/embermud/server/internal/core/event"
)

// ZoneKeyForRoom parses a structured room id ("zone/subzone/room") down to its
// zone-key ("zone/subzone"). Malformed ids parse to the sentinel
// "unknown/unknown" rather than failing.
func ZoneKeyForRoom(roomID string) string {
	parts := strings.Split(roomID, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "unknown/unknown"
	}
	return parts[0] + "/" + parts[1]
}

// Room owns its occupancy and is the single publisher of NPCEnteredRoom and
// NPCLeftRoom. Because every spawn and despawn funnels through NpcEntered and
// NpcLeft, exactly one event is produced per mutation — the idempotence check
// here is what prevents duplicates when two subsystems request the same
// mutation in one tick.
type Room struct {
	ID      string
	ZoneKey string

	bus     *event.Bus
	npcs    map[string]struct{}
	players map[string]struct{}
}

func newRoom(id string, bus *event.Bus) *Room {
	return &Room{
		ID:      id,
		ZoneKey: ZoneKeyForRoom(id),
		bus:     bus,
		npcs:    make(map[string]struct{}),
		players: make(map[string]struct{}),
	}
}

// NpcEntered adds the NPC to the room and publishes NPCEnteredRoom. Idempotent:
// a second call for a present NPC is a no-op and publishes nothing.
func (r *Room) NpcEntered(npcID string) bool {
	if _, ok := r.npcs[npcID]; ok {
		return false
	}
	r.npcs[npcID] = struct{}{}
	event.Emit(r.bus, event.NPCEnteredRoom{NPCID: npcID, RoomID: r.ID})
	return true
}

// NpcLeft removes the NPC from the room and publishes NPCLeftRoom. Idempotent.
func (r *Room) NpcLeft(npcID string) bool {
	if _, ok := r.npcs[npcID]; !ok {
		return false
	}
	delete(r.npcs, npcID)
	event.Emit(r.bus, event.NPCLeftRoom{NPCID: npcID, RoomID: r.ID})
	return true
}

// ContainsNPC reports whether the NPC currently occupies the room.
func (r *Room) ContainsNPC(npcID string) bool {
	_, ok := r.npcs[npcID]
	return ok
}

// NPCs returns a copy of the current NPC occupancy.
func (r *Room) NPCs() []string {
	out := make([]string, 0, len(r.npcs))
	for id := range r.npcs {
		out = append(out, id)
	}
	return out
}

// NPCCount returns the number of NPCs in the room.
func (r *Room) NPCCount() int {
	return len(r.npcs)
}

// PlayerCount returns the number of players in the room.
func (r *Room) PlayerCount() int {
	return len(r.players)
}

func (r *Room) playerEntered(playerID string) {
	r.players[playerID] = struct{}{}
}

func (r *Room) playerLeft(playerID string) {
	delete(r.players, playerID)
}
