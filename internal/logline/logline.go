// Package logline parses raw VRChat log lines into typed events.
//
// Parsing is a pure function with no I/O. VRChat logs contain many lines that
// are irrelevant to this application; those are not errors, they simply do not
// produce an event. Unknown line shapes introduced by log format drift degrade
// the same way.
package logline

import (
	"regexp"
	"strings"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/vrcid"
)

// TimestampFormat is the timestamp layout VRChat writes at the start of
// every log line.
const TimestampFormat = "2006.01.02 15:04:05"

// Kind identifies the type of a parsed log event.
type Kind int

// Event kinds recognized by the parser.
const (
	KindWorldJoin Kind = iota + 1
	KindRoomName
	KindPlayerJoin
	KindPlayerLeave
)

// String returns the storage/type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindWorldJoin:
		return "world_join"
	case KindRoomName:
		return "room_name"
	case KindPlayerJoin:
		return "player_join"
	case KindPlayerLeave:
		return "player_left"
	default:
		return "unknown"
	}
}

// Event is a typed VRChat log event. Immutable once produced.
// Timestamp is local time at second precision, as written in the log line.
type Event struct {
	Kind       Kind
	Timestamp  time.Time
	WorldID    vrcid.WorldID
	InstanceID vrcid.InstanceID
	RoomName   string
	PlayerName string
	PlayerID   vrcid.PlayerID
	Raw        string
}

var (
	timestampPattern = regexp.MustCompile(`^(\d{4}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2})\s`)

	// "[Behaviour] Joining wrld_<uuid>:<instance>"; the instance portion is
	// optional in very old logs. Deliberately does not match
	// "Joining or Creating Room:" lines.
	worldJoinPattern = regexp.MustCompile(`\[Behaviour\] Joining (wrld_[0-9a-fA-F-]+)(?::(\S+))?$`)

	// "[Behaviour] Entering Room: <display name>"
	roomNamePattern = regexp.MustCompile(`\[Behaviour\] Entering Room: (.+)$`)

	// "OnPlayerJoined <name>" with an optional "(usr_<uuid>)" suffix added in
	// newer clients. Older logs prefix with [NetworkManager] instead of
	// [Behaviour], so only the method name is anchored.
	playerJoinPattern = regexp.MustCompile(`OnPlayerJoined\s+(.+?)(?:\s+\((usr_[0-9a-fA-F-]+)\))?$`)
	playerLeftPattern = regexp.MustCompile(`OnPlayerLeft\s+(.+?)(?:\s+\((usr_[0-9a-fA-F-]+)\))?$`)
)

// Parse turns one raw log line into a typed event.
// The second return is false when the line does not match any known pattern,
// including lines whose leading timestamp is malformed.
func Parse(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")

	m := timestampPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	// A syntactically plausible but invalid timestamp (month 13, hour 25)
	// makes the whole line unrecognized rather than propagating a zero value.
	ts, err := time.ParseInLocation(TimestampFormat, m[1], time.Local)
	if err != nil {
		return Event{}, false
	}

	if ev, ok := parseWorldJoin(line, ts); ok {
		return ev, true
	}
	if ev, ok := parseRoomName(line, ts); ok {
		return ev, true
	}
	// OnPlayerLeft must be checked against OnPlayerLeftRoom, which also
	// appears in logs and must not produce a leave event.
	if strings.Contains(line, "OnPlayerLeftRoom") {
		return Event{}, false
	}
	if ev, ok := parsePlayer(line, ts, playerJoinPattern, KindPlayerJoin); ok {
		return ev, true
	}
	if ev, ok := parsePlayer(line, ts, playerLeftPattern, KindPlayerLeave); ok {
		return ev, true
	}

	return Event{}, false
}

func parseWorldJoin(line string, ts time.Time) (Event, bool) {
	m := worldJoinPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	worldID, err := vrcid.ParseWorldID(m[1])
	if err != nil {
		return Event{}, false
	}

	ev := Event{
		Kind:      KindWorldJoin,
		Timestamp: ts,
		WorldID:   worldID,
		Raw:       line,
	}

	if m[2] != "" {
		// A malformed instance token degrades to a join without instance
		// rather than dropping the whole event.
		if instanceID, err := vrcid.ParseInstanceID(m[2]); err == nil {
			ev.InstanceID = instanceID
		}
	}

	return ev, true
}

func parseRoomName(line string, ts time.Time) (Event, bool) {
	m := roomNamePattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	name := strings.TrimSpace(m[1])
	if name == "" {
		return Event{}, false
	}

	return Event{
		Kind:      KindRoomName,
		Timestamp: ts,
		RoomName:  name,
		Raw:       line,
	}, true
}

func parsePlayer(line string, ts time.Time, pattern *regexp.Regexp, kind Kind) (Event, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	name := strings.TrimSpace(m[1])
	if name == "" {
		return Event{}, false
	}

	ev := Event{
		Kind:       kind,
		Timestamp:  ts,
		PlayerName: name,
		Raw:        line,
	}

	if m[2] != "" {
		if playerID, err := vrcid.ParsePlayerID(m[2]); err == nil {
			ev.PlayerID = playerID
		}
	}

	return ev, true
}
