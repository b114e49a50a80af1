package platformFormat

// MiSeq read lengths accepted by the TCS pipeline.
const (
	PE150 = 150
	PE250 = 250
	PE300 = 300

	Default = PE300
)

var All = []int{PE150, PE250, PE300}

func IsKnownPlatformFormat(format int) bool {
	for _, f := range All {
		if f == format {
			return true
		}
	}
	return false
}
