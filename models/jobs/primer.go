package jobs

import (
	"fmt"
	"primerid/api/models/constants"
	"primerid/api/models/constants/genome"
	"strings"
	"unicode"
)

const (
	MinSupermajority = 0.5
	MaxSupermajority = 0.9

	MinRefPosition = 0
	MaxRefPosition = 10000

	// the embedded random primer id
	PrimerIdRun = "NNNNNNNN"
)

const (
	MsgRequired         = "Required*"
	MsgInvalidNumber    = "Invalid number."
	MsgSupermajority    = "Valid range is 0.5 to 0.9"
	MsgPrimerIdMissing  = "Primer ID not located, check the primer."
	MsgChooseGenome     = "Please choose a reference genome."
	MsgRefRange         = "Valid range is between 0 and 10,000."
	MsgEndJoinOption    = "Valid options are 1 through 4."
	MsgInvalidIupacBase = "Only IUPAC nucleotide codes are allowed."
)

type Primer struct {
	Region        string  `json:"region" yaml:"region"`
	Forward       string  `json:"forward" yaml:"forward"`
	Cdna          string  `json:"cdna" yaml:"cdna"`
	Supermajority float64 `json:"supermajority" yaml:"supermajority"`

	EndJoin        bool `json:"endJoin" yaml:"endJoin"`
	EndJoinOption  int  `json:"endJoinOption,omitempty" yaml:"endJoinOption,omitempty"`
	EndJoinOverlap *int `json:"endJoinOverlap,omitempty" yaml:"endJoinOverlap,omitempty"`

	Qc          bool             `json:"qc" yaml:"qc"`
	RefGenome   constants.Genome `json:"refGenome,omitempty" yaml:"refGenome,omitempty"`
	RefStart    *int             `json:"refStart,omitempty" yaml:"refStart,omitempty"`
	RefEnd      *int             `json:"refEnd,omitempty" yaml:"refEnd,omitempty"`
	AllowIndels bool             `json:"allowIndels" yaml:"allowIndels"`

	Trim       bool             `json:"trim" yaml:"trim"`
	TrimGenome constants.Genome `json:"trimGenome,omitempty" yaml:"trimGenome,omitempty"`
	TrimStart  *int             `json:"trimStart,omitempty" yaml:"trimStart,omitempty"`
	TrimEnd    *int             `json:"trimEnd,omitempty" yaml:"trimEnd,omitempty"`
}

// NewPrimer returns the default-valued stub a new primer starts from.
func NewPrimer() Primer {
	return Primer{
		Supermajority: MinSupermajority,
		AllowIndels:   true,
	}
}

// FieldErrors maps a primer field name to its message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, v := range fe {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	return strings.Join(parts, "; ")
}

func (p Primer) ValidateRegion() FieldErrors {
	e := FieldErrors{}
	if strings.TrimSpace(p.Region) == "" {
		e["region"] = MsgRequired
	}
	if p.Supermajority == 0 {
		e["supermajority"] = MsgInvalidNumber
	} else if p.Supermajority < MinSupermajority || p.Supermajority > MaxSupermajority {
		e["supermajority"] = MsgSupermajority
	}
	if strings.TrimSpace(p.Forward) == "" {
		e["forward"] = MsgRequired
	} else if !IsIupac(p.Forward) {
		e["forward"] = MsgInvalidIupacBase
	}
	if strings.TrimSpace(p.Cdna) == "" {
		e["cdna"] = MsgRequired
	} else if !strings.Contains(NormalizeSequence(p.Cdna), PrimerIdRun) {
		e["cdna"] = MsgPrimerIdMissing
	} else if !IsIupac(p.Cdna) {
		e["cdna"] = MsgInvalidIupacBase
	}
	return e
}

func (p Primer) ValidateEndJoin() FieldErrors {
	e := FieldErrors{}
	if !p.EndJoin {
		return e
	}
	switch {
	case p.EndJoinOption == 0:
		e["endJoinOption"] = MsgRequired
	case p.EndJoinOption < 1 || p.EndJoinOption > 4:
		e["endJoinOption"] = MsgEndJoinOption
	case p.EndJoinOption == 2 && p.EndJoinOverlap == nil:
		e["endJoinOverlap"] = MsgRequired
	}
	return e
}

func (p Primer) ValidateQc() FieldErrors {
	e := FieldErrors{}
	if p.Qc {
		validateReference(e, "refGenome", p.RefGenome, "refStart", p.RefStart, "refEnd", p.RefEnd)
	}
	return e
}

func (p Primer) ValidateTrim() FieldErrors {
	e := FieldErrors{}
	if p.Trim {
		validateReference(e, "trimGenome", p.TrimGenome, "trimStart", p.TrimStart, "trimEnd", p.TrimEnd)
	}
	return e
}

// Validate runs every section check, the way the server gates a create.
func (p Primer) Validate() FieldErrors {
	e := FieldErrors{}
	for _, section := range []FieldErrors{p.ValidateRegion(), p.ValidateEndJoin(), p.ValidateQc(), p.ValidateTrim()} {
		for k, v := range section {
			e[k] = v
		}
	}
	return e
}

// Normalized uppercases the oligos and strips whitespace and quotes.
func (p Primer) Normalized() Primer {
	p.Region = strings.TrimSpace(p.Region)
	p.Forward = NormalizeSequence(p.Forward)
	p.Cdna = NormalizeSequence(p.Cdna)
	return p
}

func validateReference(e FieldErrors, genomeKey string, g constants.Genome, startKey string, start *int, endKey string, end *int) {
	if !genome.IsKnownGenome(string(g)) {
		e[genomeKey] = MsgChooseGenome
	}
	for key, v := range map[string]*int{startKey: start, endKey: end} {
		if v == nil {
			e[key] = MsgInvalidNumber
		} else if *v < MinRefPosition || *v > MaxRefPosition {
			e[key] = MsgRefRange
		}
	}
}

var iupac = map[rune]bool{
	'A': true, 'C': true, 'G': true, 'T': true, 'U': true,
	'R': true, 'Y': true, 'S': true, 'W': true, 'K': true, 'M': true,
	'B': true, 'D': true, 'H': true, 'V': true, 'N': true,
}

func NormalizeSequence(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '\'' || r == '"' {
			continue
		}
		out = append(out, unicode.ToUpper(r))
	}
	return string(out)
}

func IsIupac(s string) bool {
	n := NormalizeSequence(s)
	if n == "" {
		return false
	}
	for _, r := range n {
		if !iupac[r] {
			return false
		}
	}
	return true
}
