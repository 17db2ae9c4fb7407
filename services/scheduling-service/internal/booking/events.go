package booking

import "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"

type EventKind string

const (
	// AutoSelected: the client's country has exactly one centre and it was chosen.
	AutoSelected EventKind = "auto_selected"
	// NoCentresAvailable: no centre serves the client's country; the flow switched to virtual.
	NoCentresAvailable EventKind = "no_centres_available"
	// MultipleCentres: the client must pick one of Candidates.
	MultipleCentres EventKind = "multiple_centres"
	// SelectionCleared: Fields were reset because an upstream choice invalidated them.
	SelectionCleared EventKind = "selection_cleared"
)

// Event tells the presentation layer what the orchestrator decided on its own.
type Event struct {
	Kind       EventKind      `json:"kind"`
	Centre     *model.Centre  `json:"centre,omitempty"`
	Candidates []model.Centre `json:"candidates,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
}
