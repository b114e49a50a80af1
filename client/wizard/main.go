// Package wizard holds the step index that gates which form sections
// are shown.
package wizard

// Wizard is a forward/back step counter starting at 0.
// It is not safe for concurrent use.
type Wizard struct {
	step int
}

func New() *Wizard {
	return &Wizard{}
}

func (w *Wizard) Step() int {
	return w.step
}

// StepForward advances by one unless that would pass limit.
// A negative limit means no ceiling.
func (w *Wizard) StepForward(limit int) {
	if limit >= 0 && w.step+1 > limit {
		return
	}
	w.step++
}

// StepBack retreats by one, never below 0.
func (w *Wizard) StepBack() {
	if w.step > 0 {
		w.step--
	}
}

// Continue is bound to a section's "continue" button: it only moves
// when the section at level has not been passed yet.
func (w *Wizard) Continue(level int) bool {
	if w.step >= level {
		return false
	}
	w.step++
	return true
}

// Visible reports whether the section tied to level is shown.
func (w *Wizard) Visible(level int) bool {
	return w.step >= level
}

// Active reports whether the section tied to level is the one being filled.
func (w *Wizard) Active(level int) bool {
	return w.step == level
}

func (w *Wizard) Reset() {
	w.step = 0
}
