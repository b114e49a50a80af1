package primers

import "primerid/api/models/jobs"

type PageID string

const (
	PageRegion  PageID = "region"
	PageEndJoin PageID = "endJoin"
	PageQc      PageID = "qc"
	PageTrim    PageID = "trim"
	PageSummary PageID = "summary"
)

// Page is one screen of the primer designer. A page whose Enabled
// returns false is skipped in both directions.
type Page struct {
	ID       PageID
	Enabled  func(p jobs.Primer) bool
	Validate func(p jobs.Primer) jobs.FieldErrors
}

func always(jobs.Primer) bool { return true }

// Pages is the designer's fixed page order.
var Pages = []Page{
	{ID: PageRegion, Enabled: always, Validate: jobs.Primer.ValidateRegion},
	{ID: PageEndJoin, Enabled: always, Validate: jobs.Primer.ValidateEndJoin},
	{ID: PageQc, Enabled: func(p jobs.Primer) bool { return p.EndJoin }, Validate: jobs.Primer.ValidateQc},
	{ID: PageTrim, Enabled: func(p jobs.Primer) bool { return p.EndJoin && p.Qc }, Validate: jobs.Primer.ValidateTrim},
	{ID: PageSummary, Enabled: always},
}

// NextEnabled returns the index of the first enabled page after from,
// or from itself when there is none.
func NextEnabled(pages []Page, from int, p jobs.Primer) int {
	for i := from + 1; i < len(pages); i++ {
		if pages[i].Enabled(p) {
			return i
		}
	}
	return from
}

// PrevEnabled returns the index of the last enabled page before from,
// or from itself when there is none.
func PrevEnabled(pages []Page, from int, p jobs.Primer) int {
	for i := from - 1; i >= 0; i-- {
		if pages[i].Enabled(p) {
			return i
		}
	}
	return from
}
