package store

import "time"

// Session kinds stored in player_events.kind.
const (
	KindPlayerJoin = "player_join"
	KindPlayerLeft = "player_left"
)

// Session is one world-join session. Its end time is implicit: the join
// time of the next session in ascending join_ts order, or open-ended when it
// is the most recent.
type Session struct {
	ID         int64      `json:"id"`
	WorldID    string     `json:"world_id"`
	InstanceID string     `json:"instance_id,omitempty"`
	WorldName  *string    `json:"world_name,omitempty"`
	JoinTs     time.Time  `json:"join_ts"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PlayerEvent is a raw player join/leave fact. It deliberately carries no
// session reference; membership is derived by time containment at read time.
type PlayerEvent struct {
	ID         int64     `json:"id"`
	Ts         time.Time `json:"ts"`
	Kind       string    `json:"kind"`
	PlayerName string    `json:"player_name"`
	PlayerID   *string   `json:"player_id,omitempty"`
	DedupeKey  string    `json:"-"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Photo is one indexed screenshot. TakenAt comes from the filename, never
// from filesystem metadata.
type Photo struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	TakenAt   time.Time `json:"taken_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StringPtr returns a pointer to the given string.
// Useful for setting optional fields.
func StringPtr(s string) *string {
	return &s
}
