package primers

import (
	"time"

	"primerid/api/models/jobs"

	"github.com/samber/lo"
)

// ConfirmWindow is how long a first delete press stays armed.
const ConfirmWindow = 3 * time.Second

// Saved manages the opt-in list of remembered primers on top of a Store.
type Saved struct {
	store Store
	Now   func() time.Time

	armedAt time.Time
}

func NewSaved(store Store) *Saved {
	return &Saved{store: store, Now: time.Now}
}

func (s *Saved) Enabled() (bool, error) {
	_, ok, err := s.store.Get(UseSavedKey)
	return ok, err
}

// SetEnabled opts in, or opts out and forgets every saved primer.
func (s *Saved) SetEnabled(on bool) error {
	if on {
		return s.store.Put(UseSavedKey, []jobs.Primer{})
	}
	if err := s.store.Clear(UseSavedKey); err != nil {
		return err
	}
	return s.store.Clear(SavedKey)
}

func (s *Saved) List() ([]jobs.Primer, error) {
	primers, _, err := s.store.Get(SavedKey)
	return primers, err
}

// Remember appends the primers whose region is not saved yet. It does
// nothing unless the user opted in.
func (s *Saved) Remember(primers []jobs.Primer) error {
	on, err := s.Enabled()
	if err != nil || !on {
		return err
	}
	saved, err := s.List()
	if err != nil {
		return err
	}
	for _, p := range primers {
		if !lo.ContainsBy(saved, func(q jobs.Primer) bool { return q.Region == p.Region }) {
			saved = append(saved, p)
		}
	}
	return s.store.Put(SavedKey, saved)
}

// DeleteSelected removes the saved primers of the given regions on the
// second call within ConfirmWindow. The first call only arms it and
// returns false.
func (s *Saved) DeleteSelected(regions []string) (bool, error) {
	now := s.Now()
	if s.armedAt.IsZero() || now.Sub(s.armedAt) > ConfirmWindow {
		s.armedAt = now
		return false, nil
	}
	s.armedAt = time.Time{}

	saved, err := s.List()
	if err != nil {
		return false, err
	}
	kept := lo.Filter(saved, func(p jobs.Primer, _ int) bool { return !lo.Contains(regions, p.Region) })
	return true, s.store.Put(SavedKey, kept)
}
