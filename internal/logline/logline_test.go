package logline

import (
	"testing"
	"time"
)

const (
	worldJoinLine  = "2024.01.15 10:00:00 Log        -  [Behaviour] Joining wrld_12345678-1234-1234-1234-123456789abc:12345~private(usr_aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeffff)"
	roomNameLine   = "2024.01.15 10:00:01 Log        -  [Behaviour] Entering Room: Amazing World"
	playerJoinLine = "2024.01.15 10:00:05 Log        -  [Behaviour] OnPlayerJoined Alice (usr_11111111-2222-3333-4444-555555555555)"
	playerLeftLine = "2024.01.15 10:30:00 Log        -  [Behaviour] OnPlayerLeft Alice (usr_11111111-2222-3333-4444-555555555555)"
)

func TestParse_WorldJoin(t *testing.T) {
	ev, ok := Parse(worldJoinLine)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindWorldJoin {
		t.Errorf("Kind = %v, want KindWorldJoin", ev.Kind)
	}
	if string(ev.WorldID) != "wrld_12345678-1234-1234-1234-123456789abc" {
		t.Errorf("WorldID = %q", ev.WorldID)
	}
	if ev.InstanceID == "" {
		t.Error("expected instance ID to be captured")
	}

	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
	if ev.Raw != worldJoinLine {
		t.Error("Raw should carry the original line")
	}
}

func TestParse_WorldJoinWithoutInstance(t *testing.T) {
	line := "2024.01.15 10:00:00 Log        -  [Behaviour] Joining wrld_12345678-1234-1234-1234-123456789abc"
	ev, ok := Parse(line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindWorldJoin {
		t.Errorf("Kind = %v, want KindWorldJoin", ev.Kind)
	}
	if ev.InstanceID != "" {
		t.Errorf("InstanceID = %q, want empty", ev.InstanceID)
	}
}

func TestParse_RoomName(t *testing.T) {
	ev, ok := Parse(roomNameLine)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindRoomName {
		t.Errorf("Kind = %v, want KindRoomName", ev.Kind)
	}
	if ev.RoomName != "Amazing World" {
		t.Errorf("RoomName = %q, want %q", ev.RoomName, "Amazing World")
	}
}

func TestParse_PlayerJoin(t *testing.T) {
	ev, ok := Parse(playerJoinLine)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindPlayerJoin {
		t.Errorf("Kind = %v, want KindPlayerJoin", ev.Kind)
	}
	if ev.PlayerName != "Alice" {
		t.Errorf("PlayerName = %q, want %q", ev.PlayerName, "Alice")
	}
	if string(ev.PlayerID) != "usr_11111111-2222-3333-4444-555555555555" {
		t.Errorf("PlayerID = %q", ev.PlayerID)
	}
}

func TestParse_PlayerJoinWithoutID(t *testing.T) {
	// Older clients log only the display name.
	line := "2023.05.01 18:00:00 Log        -  [NetworkManager] OnPlayerJoined Bob The Builder"
	ev, ok := Parse(line)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindPlayerJoin {
		t.Errorf("Kind = %v, want KindPlayerJoin", ev.Kind)
	}
	if ev.PlayerName != "Bob The Builder" {
		t.Errorf("PlayerName = %q, want %q", ev.PlayerName, "Bob The Builder")
	}
	if ev.PlayerID != "" {
		t.Errorf("PlayerID = %q, want empty", ev.PlayerID)
	}
}

func TestParse_PlayerLeft(t *testing.T) {
	ev, ok := Parse(playerLeftLine)
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Kind != KindPlayerLeave {
		t.Errorf("Kind = %v, want KindPlayerLeave", ev.Kind)
	}
	if ev.PlayerName != "Alice" {
		t.Errorf("PlayerName = %q, want %q", ev.PlayerName, "Alice")
	}
}

func TestParse_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"no timestamp", "[Behaviour] OnPlayerJoined Alice"},
		{"unrelated line", "2024.01.15 10:00:00 Log        -  [Behaviour] Saving Avatar Data"},
		{"joining or creating", "2024.01.15 10:00:00 Log        -  [Behaviour] Joining or Creating Room: Amazing World"},
		{"player left room", "2024.01.15 10:00:00 Log        -  [Behaviour] OnPlayerLeftRoom"},
		{"invalid month", "2024.13.15 10:00:00 Log        -  [Behaviour] OnPlayerJoined Alice"},
		{"invalid hour", "2024.01.15 25:00:00 Log        -  [Behaviour] OnPlayerJoined Alice"},
		{"empty room name", "2024.01.15 10:00:00 Log        -  [Behaviour] Entering Room:  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Parse(tt.line); ok {
				t.Errorf("Parse(%q) should not produce an event", tt.line)
			}
		})
	}
}

func TestParse_TrailingCRLF(t *testing.T) {
	ev, ok := Parse(playerJoinLine + "\r\n")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.PlayerName != "Alice" {
		t.Errorf("PlayerName = %q, want %q", ev.PlayerName, "Alice")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindWorldJoin, "world_join"},
		{KindRoomName, "room_name"},
		{KindPlayerJoin, "player_join"},
		{KindPlayerLeave, "player_left"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
