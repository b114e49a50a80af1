package pipeline

import (
	"primerid/api/models/constants"
	"strings"
)

const (
	Unknown constants.Pipeline = ""

	TCSDR      constants.Pipeline = "tcsdr"
	OGV        constants.Pipeline = "ogv"
	Splicing   constants.Pipeline = "splicing"
	Intactness constants.Pipeline = "intactness"
	Coreceptor constants.Pipeline = "coreceptor"
)

var All = []constants.Pipeline{TCSDR, OGV, Splicing, Intactness, Coreceptor}

func CastToPipeline(text string) constants.Pipeline {
	switch strings.ToLower(text) {
	case "tcsdr", "tcs", "dr":
		return TCSDR
	case "ogv":
		return OGV
	case "splicing":
		return Splicing
	case "intactness", "intact":
		return Intactness
	case "coreceptor", "corereceptor":
		return Coreceptor
	default:
		return Unknown
	}
}

// UsesUploads reports whether jobs of this pipeline may carry signed-URL uploads.
// Sequence pipelines take their input inline and are created already submittable.
func UsesUploads(p constants.Pipeline) bool {
	switch p {
	case TCSDR, OGV, Splicing:
		return true
	default:
		return false
	}
}

// AllowsHtsf reports whether the remote staging location can replace uploads.
func AllowsHtsf(p constants.Pipeline) bool {
	return p == TCSDR
}

func DefaultJobLabel(p constants.Pipeline) string {
	switch p {
	case TCSDR:
		return "tcs-results"
	case OGV:
		return "ogv-results"
	case Splicing:
		return "hiv-splicing-results"
	case Intactness:
		return "intactness-results"
	case Coreceptor:
		return "coreceptor-results"
	default:
		return "results"
	}
}
