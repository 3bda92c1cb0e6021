package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/config"
	"github.com/embermud/server/internal/core/event"
	"github.com/embermud/server/internal/data"
)

// State holds the room registry, player locations and the world clock.
// Accessed only from the game loop goroutine — no locks.
type State struct {
	log *zap.Logger
	bus *event.Bus

	rooms       map[string]*Room
	playerRooms map[string]string // playerID → current room id
	zonePlayers map[string]int    // zone-key → player count

	weather   string
	dayLength time.Duration
	dayAcc    time.Duration
}

func NewState(bus *event.Bus, cfg config.WorldConfig, log *zap.Logger) *State {
	dl := cfg.DayLength
	if dl <= 0 {
		dl = 2 * time.Hour
	}
	weather := cfg.InitialWeather
	if weather == "" {
		weather = "clear"
	}
	return &State{
		log:         log,
		bus:         bus,
		rooms:       make(map[string]*Room),
		playerRooms: make(map[string]string),
		zonePlayers: make(map[string]int),
		weather:     weather,
		dayLength:   dl,
	}
}

// AddRoom registers a room by id, returning the existing one if already known.
func (s *State) AddRoom(id string) *Room {
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := newRoom(id, s.bus)
	s.rooms[id] = r
	return r
}

// RegisterRooms creates every room declared in the zone table. Returns the
// number of rooms registered.
func (s *State) RegisterRooms(zones *data.ZoneTable) int {
	n := 0
	for _, zc := range zones.All() {
		for _, roomID := range zc.Rooms {
			if _, ok := s.rooms[roomID]; ok {
				s.log.Warn("duplicate room declaration", zap.String("room", roomID))
				continue
			}
			s.AddRoom(roomID)
			n++
		}
	}
	return n
}

// GetRoom returns the room, or nil when the id is unknown.
func (s *State) GetRoom(id string) *Room {
	return s.rooms[id]
}

// RoomCount returns the number of registered rooms.
func (s *State) RoomCount() int {
	return len(s.rooms)
}

// MovePlayer moves a player into a room, publishing PlayerLeftRoom for the old
// room (if any) and PlayerEnteredRoom for the new one. An empty roomID removes
// the player from the world.
func (s *State) MovePlayer(playerID, roomID string) {
	if old, ok := s.playerRooms[playerID]; ok {
		if old == roomID {
			return
		}
		if r := s.rooms[old]; r != nil {
			r.playerLeft(playerID)
		}
		s.decZonePlayers(ZoneKeyForRoom(old))
		delete(s.playerRooms, playerID)
		event.Emit(s.bus, event.PlayerLeftRoom{PlayerID: playerID, RoomID: old})
	}
	if roomID == "" {
		return
	}
	r := s.rooms[roomID]
	if r == nil {
		s.log.Warn("player moved into unknown room", zap.String("player", playerID), zap.String("room", roomID))
		return
	}
	r.playerEntered(playerID)
	s.playerRooms[playerID] = roomID
	s.zonePlayers[r.ZoneKey]++
	event.Emit(s.bus, event.PlayerEnteredRoom{PlayerID: playerID, RoomID: roomID})
}

func (s *State) decZonePlayers(zoneKey string) {
	if s.zonePlayers[zoneKey] > 0 {
		s.zonePlayers[zoneKey]--
	}
	if s.zonePlayers[zoneKey] == 0 {
		delete(s.zonePlayers, zoneKey)
	}
}

// PlayersInZone returns the number of players currently in a zone-key.
func (s *State) PlayersInZone(zoneKey string) int {
	return s.zonePlayers[zoneKey]
}

// AdvanceClock moves the in-game clock forward by real elapsed time.
func (s *State) AdvanceClock(dt time.Duration) {
	s.dayAcc = (s.dayAcc + dt) % s.dayLength
}

// Hour returns the in-game hour of day, 0–23.
func (s *State) Hour() int {
	return int(24 * s.dayAcc / s.dayLength)
}

// SetHour pins the in-game hour. Tests and administrative tools use it.
func (s *State) SetHour(hour int) {
	s.dayAcc = s.dayLength / 24 * time.Duration(hour%24)
}

// Weather returns the current weather tag.
func (s *State) Weather() string {
	return s.weather
}

// SetWeather replaces the current weather tag.
func (s *State) SetWeather(w string) {
	s.weather = w
}
