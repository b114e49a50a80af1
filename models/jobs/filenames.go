package jobs

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pairedReadMarker    = regexp.MustCompile(`r1|r2`)
	disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.]`)
)

// SubjectFromFilename is the OGV grouping key, the text before the first underscore.
func SubjectFromFilename(name string) string {
	return strings.SplitN(name, "_", 2)[0]
}

func HasSubject(name string) bool {
	return strings.Contains(name, "_") && SubjectFromFilename(name) != ""
}

// SanitizeFilename maps `-` to `_` then strips anything outside [A-Za-z0-9_.].
func SanitizeFilename(name string) string {
	return disallowedNameChars.ReplaceAllString(strings.ReplaceAll(name, "-", "_"), "")
}

// ReadDirection reports "r1", "r2" or "" for a file name, case-insensitively.
func ReadDirection(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "r1"):
		return "r1"
	case strings.Contains(lower, "r2"):
		return "r2"
	default:
		return ""
	}
}

// LibraryFromFilename is the lowercased prefix before the first r1/r2 marker.
func LibraryFromFilename(name string) string {
	return pairedReadMarker.Split(strings.ToLower(name), 2)[0]
}

// LibraryLabel trims the separator left over in front of the read marker.
func LibraryLabel(name string) string {
	return strings.TrimRight(LibraryFromFilename(name), "_-.")
}

// PairedCounterpart swaps every r1 for r2 (or back) in the lowercased name.
func PairedCounterpart(name string) string {
	lower := strings.ToLower(name)
	switch ReadDirection(name) {
	case "r1":
		return strings.ReplaceAll(lower, "r1", "r2")
	case "r2":
		return strings.ReplaceAll(lower, "r2", "r1")
	default:
		return ""
	}
}

// ValidatePairedReads returns a message per offending file name.
// Names without a read marker are single-end libraries of their own.
func ValidatePairedReads(names []string) map[string]string {
	errs := map[string]string{}
	present := map[string]bool{}
	for _, n := range names {
		present[strings.ToLower(n)] = true
	}

	libraries := map[string]int{}
	for _, n := range names {
		direction := ReadDirection(n)
		lib := LibraryFromFilename(n)
		libraries[lib]++

		switch {
		case lib == "":
			errs[n] = fmt.Sprintf("Please use a valid file name format: <lib_name>_%s.fastq.gz", direction)
		case libraries[lib] > 2:
			errs[n] = fmt.Sprintf("Duplicate library detected: %s @ %s.", lib, n)
		case direction == "r1" && !present[PairedCounterpart(n)]:
			errs[n] = "R1 file does not have a matching R2 file: " + n
		case direction == "r2" && !present[PairedCounterpart(n)]:
			errs[n] = "R2 file does not have a matching R1 file: " + n
		}
	}
	return errs
}
