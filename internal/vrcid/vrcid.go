// Package vrcid provides validated VRChat identifier types.
//
// IDs are distinct types constructed only through parsing functions, so a
// world ID can never be passed where a player ID is expected and malformed
// identifiers are rejected at the boundary instead of flowing into storage.
package vrcid

import (
	"errors"
	"regexp"
)

// Sentinel errors for identifier validation.
var (
	ErrNotWorldID    = errors.New("not a world id")
	ErrNotPlayerID   = errors.New("not a player id")
	ErrNotInstanceID = errors.New("not an instance id")
)

var (
	worldIDPattern  = regexp.MustCompile(`^wrld_[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	playerIDPattern = regexp.MustCompile(`^usr_[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Instance IDs are an alphanumeric token optionally followed by tilde
	// sections such as ~region(jp) or ~private(usr_...)~canRequestInvite.
	instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+(~[A-Za-z]+(\([^)]*\))?)*$`)
)

// WorldID is a validated VRChat world identifier (wrld_<uuid>).
type WorldID string

// PlayerID is a validated VRChat player identifier (usr_<uuid>).
type PlayerID string

// InstanceID is a validated VRChat instance identifier.
type InstanceID string

// ParseWorldID validates s as a world ID.
func ParseWorldID(s string) (WorldID, error) {
	if !worldIDPattern.MatchString(s) {
		return "", ErrNotWorldID
	}
	return WorldID(s), nil
}

// ParsePlayerID validates s as a player ID.
func ParsePlayerID(s string) (PlayerID, error) {
	if !playerIDPattern.MatchString(s) {
		return "", ErrNotPlayerID
	}
	return PlayerID(s), nil
}

// ParseInstanceID validates s as an instance ID.
func ParseInstanceID(s string) (InstanceID, error) {
	if s == "" || !instanceIDPattern.MatchString(s) {
		return "", ErrNotInstanceID
	}
	return InstanceID(s), nil
}

func (w WorldID) String() string    { return string(w) }
func (p PlayerID) String() string   { return string(p) }
func (i InstanceID) String() string { return string(i) }
