package event

// World events consumed and published by the population subsystem.
// NPCEnteredRoom/NPCLeftRoom are published only by the room layer; every
// spawn or despawn produces exactly one of each, never zero, never two.

type PlayerEnteredRoom struct {
	PlayerID string
	RoomID   string
}

type PlayerLeftRoom struct {
	PlayerID string
	RoomID   string
}

type NPCEnteredRoom struct {
	NPCID  string
	RoomID string
}

type NPCLeftRoom struct {
	NPCID  string
	RoomID string
}

type NPCDied struct {
	NPCID  string
	RoomID string
	Cause  string
}
