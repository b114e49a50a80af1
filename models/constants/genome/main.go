package genome

import (
	"primerid/api/models/constants"
	"strings"
)

const (
	Unknown constants.Genome = ""

	HXB2   constants.Genome = "HXB2"
	NL43   constants.Genome = "NL43"
	MAC239 constants.Genome = "MAC239"
)

var All = []constants.Genome{HXB2, NL43, MAC239}

func CastToGenome(text string) constants.Genome {
	switch strings.ToUpper(text) {
	case "HXB2":
		return HXB2
	case "NL43", "NL4-3":
		return NL43
	case "MAC239":
		return MAC239
	default:
		return Unknown
	}
}

func IsKnownGenome(text string) bool {
	return CastToGenome(text) != Unknown
}
