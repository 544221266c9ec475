package vrcid

import (
	"errors"
	"testing"
)

func TestParseWorldID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "wrld_12345678-1234-1234-1234-123456789abc", false},
		{"uppercase hex", "wrld_ABCDEF12-1234-1234-1234-123456789ABC", false},
		{"missing prefix", "12345678-1234-1234-1234-123456789abc", true},
		{"wrong prefix", "usr_12345678-1234-1234-1234-123456789abc", true},
		{"truncated", "wrld_12345678-1234", true},
		{"empty", "", true},
		{"trailing junk", "wrld_12345678-1234-1234-1234-123456789abc:12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseWorldID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNotWorldID) {
					t.Errorf("ParseWorldID(%q) error = %v, want ErrNotWorldID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWorldID(%q): %v", tt.input, err)
			}
			if id.String() != tt.input {
				t.Errorf("String() = %q, want %q", id, tt.input)
			}
		})
	}
}

func TestParsePlayerID(t *testing.T) {
	if _, err := ParsePlayerID("usr_12345678-1234-1234-1234-123456789abc"); err != nil {
		t.Errorf("valid player id rejected: %v", err)
	}
	if _, err := ParsePlayerID("wrld_12345678-1234-1234-1234-123456789abc"); !errors.Is(err, ErrNotPlayerID) {
		t.Errorf("world id accepted as player id, err = %v", err)
	}
	if _, err := ParsePlayerID(""); !errors.Is(err, ErrNotPlayerID) {
		t.Errorf("empty string accepted, err = %v", err)
	}
}

func TestParseInstanceID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare number", "12345", false},
		{"alphanumeric", "abc123", false},
		{"region section", "12345~region(jp)", false},
		{"private with owner", "12345~private(usr_12345678-1234-1234-1234-123456789abc)", false},
		{"multiple sections", "12345~private(usr_12345678-1234-1234-1234-123456789abc)~canRequestInvite", false},
		{"empty", "", true},
		{"leading tilde", "~region(jp)", true},
		{"spaces", "123 45", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstanceID(tt.input)
			if tt.wantErr && !errors.Is(err, ErrNotInstanceID) {
				t.Errorf("ParseInstanceID(%q) error = %v, want ErrNotInstanceID", tt.input, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ParseInstanceID(%q): %v", tt.input, err)
			}
		})
	}
}
