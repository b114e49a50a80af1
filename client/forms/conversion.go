package forms

import (
	"strings"

	"github.com/spf13/cast"
)

// Conversion collects the weeks since start of ART for each OGV subject.
// Errors stay hidden until the user tried to move on once.
type Conversion struct {
	AttemptedSubmit bool

	raw map[string]string
}

func NewConversion() *Conversion {
	return &Conversion{raw: map[string]string{}}
}

func (c *Conversion) Set(subject string, weeks string) {
	c.raw[subject] = strings.TrimSpace(weeks)
}

func (c *Conversion) Get(subject string) string {
	return c.raw[subject]
}

// Validate reports every subject without a positive whole number of weeks.
func (c *Conversion) Validate(subjects []string) map[string]string {
	e := map[string]string{}
	for _, s := range subjects {
		if _, ok := c.weeks(s); !ok {
			e[s] = MsgWeeksRequired
		}
	}
	return e
}

// Errors is what to render: nothing before the first attempt.
func (c *Conversion) Errors(subjects []string) map[string]string {
	if !c.AttemptedSubmit {
		return map[string]string{}
	}
	return c.Validate(subjects)
}

// TryAdvance marks the attempt and reports whether the form may proceed.
func (c *Conversion) TryAdvance(subjects []string) error {
	c.AttemptedSubmit = true
	return validationError(c.Validate(subjects))
}

// Values is the conversion map for the job payload.
func (c *Conversion) Values(subjects []string) map[string]int {
	out := map[string]int{}
	for _, s := range subjects {
		if w, ok := c.weeks(s); ok {
			out[s] = w
		}
	}
	return out
}

func (c *Conversion) weeks(subject string) (int, bool) {
	raw := strings.TrimLeft(c.raw[subject], "0")
	if raw == "" {
		return 0, false
	}
	w, err := cast.ToIntE(raw)
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}
