// Package reactions turns raw per-user reaction rows into the compact
// per-emoji summary the API returns. Pure computation, no I/O.
package reactions

import (
	"github.com/google/uuid"

	"github.com/strandhq/strand/internal/models"
)

// Group aggregates raw reaction rows by emoji for a given viewer.
//
// The output order is the order each emoji was first seen in the input, not
// alphabetical. The UI renders reaction chips in that order, so reordering
// them between reads would make chips jump around.
//
// Count is the number of rows for the emoji — rows are unique per
// (message, user, emoji), so that equals the number of distinct reactors.
// ReactedByMe is true iff any row for the emoji belongs to the viewer.
func Group(raw []models.Reaction, viewerID uuid.UUID) []models.GroupedReaction {
	groups := make([]models.GroupedReaction, 0)
	index := make(map[string]int)

	for _, r := range raw {
		i, seen := index[r.Emoji]
		if !seen {
			index[r.Emoji] = len(groups)
			groups = append(groups, models.GroupedReaction{Emoji: r.Emoji})
			i = len(groups) - 1
		}
		groups[i].Count++
		if r.UserID == viewerID {
			groups[i].ReactedByMe = true
		}
	}

	return groups
}
