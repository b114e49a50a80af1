package forms

import (
	"regexp"
	"strings"

	"primerid/api/models/jobs"

	"github.com/spf13/cast"
)

const (
	DefaultStrain   = "NL43"
	DefaultDistance = "2"
)

// SpliceConfig is the splicing pipeline's advanced settings, kept as
// typed by the user.
type SpliceConfig struct {
	Strain   string
	Assay    string
	Distance string
	Sequence string
}

func NewSpliceConfig() SpliceConfig {
	return SpliceConfig{Strain: DefaultStrain, Distance: DefaultDistance}
}

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// LenientInt reads the leading integer of s. Anything without one is nil.
func LenientInt(s string) *int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil
	}
	sign := ""
	if m[0] == '-' || m[0] == '+' {
		sign, m = m[:1], m[1:]
	}
	if m = strings.TrimLeft(m, "0"); m == "" {
		m = "0"
	}
	n, err := cast.ToIntE(sign + m)
	if err != nil {
		return nil
	}
	return &n
}

func (s SpliceConfig) Apply(j *jobs.Job) {
	j.Strain = strings.TrimSpace(s.Strain)
	j.Assay = strings.TrimSpace(s.Assay)
	j.Distance = LenientInt(s.Distance)
	j.Sequence = strings.TrimSpace(s.Sequence)
}
