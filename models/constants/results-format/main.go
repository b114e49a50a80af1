package resultsFormat

import (
	"primerid/api/models/constants"
	"strings"
)

const (
	Unknown constants.ResultsFormat = ""

	Tar constants.ResultsFormat = "tar"
	Zip constants.ResultsFormat = "zip"
)

func CastToResultsFormat(text string) constants.ResultsFormat {
	switch strings.ToLower(strings.TrimPrefix(text, ".")) {
	case "tar", "tar.gz", "tgz":
		return Tar
	case "zip":
		return Zip
	default:
		return Unknown
	}
}

func IsKnownResultsFormat(text string) bool {
	return CastToResultsFormat(text) != Unknown
}
