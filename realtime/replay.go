// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"slices"

	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// Announcement is one room-membership message from the device to the
// realtime service.
type Announcement struct {
	// Event is checkin.EventJoin or checkin.EventLeave.
	Event string

	EventID string
}

// ReplayAnnouncements returns the join announcements that restore
// membership of rooms on a fresh connection: exactly one join per
// distinct non-empty room, in sorted order. Leaves are never replayed
// because a fresh connection starts with no membership.
func ReplayAnnouncements(rooms []string) []Announcement {
	sorted := slices.Clone(rooms)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	announcements := make([]Announcement, 0, len(sorted))
	for _, room := range sorted {
		if room == "" {
			continue
		}
		announcements = append(announcements, Announcement{Event: checkin.EventJoin, EventID: room})
	}
	return announcements
}
