// Package group implements the session-photo correlation algorithm.
//
// Grouping is a stateless read-side join: it owns no persistent state and is
// recomputed per query from the session and photo tables, so losing a
// grouped view can never lose data.
package group

import (
	"sort"

	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// PhotoGroup is the set of photos attributed to one session. A nil Session
// is the ungrouped bucket: photos taken before any known join event.
type PhotoGroup struct {
	Session *store.Session `json:"session"`
	Photos  []store.Photo  `json:"photos"`
}

// Assign attributes each photo to the latest session whose join time is at
// or before the photo's timestamp, or to the ungrouped bucket when no such
// session exists.
//
// sessions must be ascending by (join time, ID), the storage order. Photos
// may arrive in any order; output photos are ascending by (taken time, ID)
// within each group. Runs in O(P log S) via binary search per photo.
//
// Every session produces a group even with zero photos. The ungrouped
// bucket, when non-empty, comes first; session groups follow in session
// order. Sessions sharing one join timestamp resolve to the highest ID,
// deterministically, so repeated calls return identical groupings.
func Assign(sessions []store.Session, photos []store.Photo) []PhotoGroup {
	sorted := make([]store.Photo, len(photos))
	copy(sorted, photos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TakenAt.Equal(sorted[j].TakenAt) {
			return sorted[i].TakenAt.Before(sorted[j].TakenAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var ungrouped []store.Photo
	bySession := make([][]store.Photo, len(sessions))

	for _, p := range sorted {
		idx := latestSessionAt(sessions, p)
		if idx < 0 {
			ungrouped = append(ungrouped, p)
			continue
		}
		bySession[idx] = append(bySession[idx], p)
	}

	groups := make([]PhotoGroup, 0, len(sessions)+1)
	if len(ungrouped) > 0 {
		groups = append(groups, PhotoGroup{Photos: ungrouped})
	}
	for i := range sessions {
		groups = append(groups, PhotoGroup{
			Session: &sessions[i],
			Photos:  bySession[i],
		})
	}
	return groups
}

// latestSessionAt returns the index of the latest session with
// join time <= the photo's timestamp, or -1 when none qualifies.
func latestSessionAt(sessions []store.Session, p store.Photo) int {
	// First session strictly after the photo; everything before it qualifies.
	idx := sort.Search(len(sessions), func(i int) bool {
		return sessions[i].JoinTs.After(p.TakenAt)
	})
	return idx - 1
}
