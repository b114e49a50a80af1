package viralseq

import (
	"primerid/api/models/constants"
	"primerid/api/models/jobs"
)

/*
	Bidirectional mapping between the portal's TCS/DR parameters
	and the flag names understood by the viral_seq `tcs` command line tool.
*/

type PrimerPair struct {
	Region        string           `json:"region"`
	Forward       string           `json:"forward"`
	Cdna          string           `json:"cdna"`
	Majority      float64          `json:"majority"`
	Indel         bool             `json:"indel"`
	EndJoin       bool             `json:"end_join"`
	EndJoinOption int              `json:"end_join_option,omitempty"`
	Overlap       *int             `json:"overlap,omitempty"`
	TcsQc         bool             `json:"TCS_QC"`
	RefGenome     constants.Genome `json:"ref_genome,omitempty"`
	RefStart      *int             `json:"ref_start,omitempty"`
	RefEnd        *int             `json:"ref_end,omitempty"`
	Trim          bool             `json:"trim"`
	TrimRef       constants.Genome `json:"trim_ref,omitempty"`
	TrimRefStart  *int             `json:"trim_ref_start,omitempty"`
	TrimRefEnd    *int             `json:"trim_ref_end,omitempty"`
}

type Params struct {
	PrimerPairs       []PrimerPair `json:"primer_pairs"`
	PlatformErrorRate float64      `json:"platform_error_rate"`
	PlatformFormat    int          `json:"platform_format"`
	Email             string       `json:"email"`
}

// Pipeline is the subset of a TCS/DR job the tool consumes.
type Pipeline struct {
	Primers        []jobs.Primer `json:"primers"`
	ErrorRate      float64       `json:"errorRate"`
	PlatformFormat int           `json:"platformFormat"`
	Email          string        `json:"email"`
}

func FromJob(j jobs.Job) Pipeline {
	return Pipeline{
		Primers:        j.Primers,
		ErrorRate:      j.ErrorRate,
		PlatformFormat: j.PlatformFormat,
		Email:          j.Email,
	}
}

func ToCLI(p Pipeline) Params {
	pairs := make([]PrimerPair, 0, len(p.Primers))
	for _, pr := range p.Primers {
		pairs = append(pairs, PrimerPair{
			Region:        pr.Region,
			Forward:       pr.Forward,
			Cdna:          pr.Cdna,
			Majority:      pr.Supermajority,
			Indel:         pr.AllowIndels,
			EndJoin:       pr.EndJoin,
			EndJoinOption: pr.EndJoinOption,
			Overlap:       pr.EndJoinOverlap,
			TcsQc:         pr.Qc,
			RefGenome:     pr.RefGenome,
			RefStart:      pr.RefStart,
			RefEnd:        pr.RefEnd,
			Trim:          pr.Trim,
			TrimRef:       pr.TrimGenome,
			TrimRefStart:  pr.TrimStart,
			TrimRefEnd:    pr.TrimEnd,
		})
	}
	return Params{
		PrimerPairs:       pairs,
		PlatformErrorRate: p.ErrorRate,
		PlatformFormat:    p.PlatformFormat,
		Email:             p.Email,
	}
}

func FromCLI(c Params) Pipeline {
	primers := make([]jobs.Primer, 0, len(c.PrimerPairs))
	for _, pp := range c.PrimerPairs {
		primers = append(primers, jobs.Primer{
			Region:         pp.Region,
			Forward:        pp.Forward,
			Cdna:           pp.Cdna,
			Supermajority:  pp.Majority,
			AllowIndels:    pp.Indel,
			EndJoin:        pp.EndJoin,
			EndJoinOption:  pp.EndJoinOption,
			EndJoinOverlap: pp.Overlap,
			Qc:             pp.TcsQc,
			RefGenome:      pp.RefGenome,
			RefStart:       pp.RefStart,
			RefEnd:         pp.RefEnd,
			Trim:           pp.Trim,
			TrimGenome:     pp.TrimRef,
			TrimStart:      pp.TrimRefStart,
			TrimEnd:        pp.TrimRefEnd,
		})
	}
	return Pipeline{
		Primers:        primers,
		ErrorRate:      c.PlatformErrorRate,
		PlatformFormat: c.PlatformFormat,
		Email:          c.Email,
	}
}
