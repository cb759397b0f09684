// Package session holds the five slots of session state and persists
// them as one JSON snapshot in a store.Backend.
package session

import "github.com/fruitsalade/slackfiles/pkg/models"

// State is the whole session: two directories and three file datasets.
// Each slot is absent until computed and never reset within a session.
//
// State is not safe for concurrent mutation; callers sharing one State
// across goroutines must serialize access.
type State struct {
	Channels  models.Slot[models.Directory] `json:"channels"`
	Users     models.Slot[models.Directory] `json:"users"`
	RawFiles  models.Slot[[]models.Record]  `json:"raw_files"`
	Files     models.Slot[[]models.Record]  `json:"files"`
	Abandoned models.Slot[[]models.Record]  `json:"nsnpf"`
}

// New returns a state with every slot absent.
func New() *State {
	return &State{}
}

// PresentSlots lists the names of the slots that hold a value.
func (s *State) PresentSlots() []string {
	var names []string
	for _, slot := range []struct {
		name    string
		present bool
	}{
		{"channels", s.Channels.IsPresent()},
		{"users", s.Users.IsPresent()},
		{"raw_files", s.RawFiles.IsPresent()},
		{"files", s.Files.IsPresent()},
		{"nsnpf", s.Abandoned.IsPresent()},
	} {
		if slot.present {
			names = append(names, slot.name)
		}
	}
	return names
}

// Policy forces dataset slots back to absent after loading, so they are
// recomputed while the directories are reused. Clearing a slot also
// clears every slot derived from it: raw_files -> files -> nsnpf.
type Policy struct {
	RefreshFiles    bool // recompute files and nsnpf from cached raw_files
	RefreshRawFiles bool // refetch raw_files (implies RefreshFiles)
}

// Apply resets the slots selected by p.
func (p Policy) Apply(s *State) {
	if p.RefreshRawFiles {
		s.RawFiles = models.Absent[[]models.Record]()
	}
	if p.RefreshRawFiles || p.RefreshFiles {
		s.Files = models.Absent[[]models.Record]()
		s.Abandoned = models.Absent[[]models.Record]()
	}
}
