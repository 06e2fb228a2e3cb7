package dto

import (
	"notebook/model"
)

const (
	PreviewLength = 30
	ellipsis      = "..."
	bullet        = "• "
)

// NoteListItem is one row of the notes overview.
type NoteListItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Preview returns text cut to PreviewLength characters, with an ellipsis
// marker when anything was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + ellipsis
}

func ToNoteListItem(note model.Note) NoteListItem {
	return NoteListItem{
		ID:    note.ID,
		Label: bullet + Preview(note.Text),
	}
}

func ToNoteListItems(notes []model.Note) []NoteListItem {
	items := make([]NoteListItem, len(notes))
	for i, note := range notes {
		items[i] = ToNoteListItem(note)
	}
	return items
}
