package repository

import (
	"sort"

	"notebook/model"
)

// SortNotes orders notes by creation time, then ID, so snapshots render
// stably across clients.
func SortNotes(notes []model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
}

// snapshot is the live view of one scope, folded from change events.
type snapshot map[string]model.Note

func newSnapshot(notes []model.Note) snapshot {
	s := make(snapshot, len(notes))
	for _, n := range notes {
		s[n.ID] = n
	}
	return s
}

// apply folds one change into the snapshot. changed reports whether the
// view differs; invalidated means the stream cannot continue (collection
// dropped or renamed).
func (s snapshot) apply(operation, id string, doc *model.Note) (changed, invalidated bool) {
	switch operation {
	case "insert", "update", "replace":
		if doc == nil {
			// update lookup found nothing: the note was deleted meanwhile
			_, existed := s[id]
			delete(s, id)
			return existed, false
		}
		if prev, ok := s[id]; ok && prev == *doc {
			return false, false
		}
		s[id] = *doc
		return true, false
	case "delete":
		_, existed := s[id]
		delete(s, id)
		return existed, false
	case "drop", "rename", "dropDatabase", "invalidate":
		return false, true
	default:
		return false, false
	}
}

func (s snapshot) notes() []model.Note {
	notes := make([]model.Note, 0, len(s))
	for _, n := range s {
		notes = append(notes, n)
	}
	SortNotes(notes)
	return notes
}
