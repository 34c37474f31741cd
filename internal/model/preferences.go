package model

// Preferences holds per-user view preferences for the note organizer.
// They are loaded by the settings store and handed to the engine at
// construction; the engine itself never writes them.
type Preferences struct {
	DefaultColorFullCard bool `json:"default_color_full_card"`
	ShowArchived         bool `json:"show_archived"`
}
