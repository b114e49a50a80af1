// Package primers drives the paged primer designer of the TCS/DR form and
// the optional local cache of previously used primers.
package primers

import (
	"fmt"
	"strings"

	"primerid/api/models/constants"
	"primerid/api/models/jobs"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Designer edits one draft primer at a time over Pages and keeps the
// list the job will be submitted with.
type Designer struct {
	Primers []jobs.Primer
	Draft   jobs.Primer
	Errors  jobs.FieldErrors
	Editing bool

	pages []Page
	page  int
	index int
}

func NewDesigner() *Designer {
	return &Designer{pages: Pages, Errors: jobs.FieldErrors{}, index: -1}
}

// Add opens a fresh default primer on the first page.
func (d *Designer) Add() {
	d.Draft = jobs.NewPrimer()
	d.Errors = jobs.FieldErrors{}
	d.Editing = true
	d.page = 0
	d.index = -1
}

// Edit opens an existing primer on the first page.
func (d *Designer) Edit(i int) error {
	if i < 0 || i >= len(d.Primers) {
		return fmt.Errorf("no primer at position %d", i)
	}
	d.Draft = d.Primers[i]
	d.Errors = jobs.FieldErrors{}
	d.Editing = true
	d.page = 0
	d.index = i
	return nil
}

func (d *Designer) Cancel() {
	d.Editing = false
	d.Errors = jobs.FieldErrors{}
	d.index = -1
}

func (d *Designer) Page() Page {
	return d.pages[d.page]
}

// Next validates the current page and moves to the next enabled one.
// It returns false, filling Errors when the page does not validate, or
// when the summary is already showing.
func (d *Designer) Next() bool {
	if v := d.pages[d.page].Validate; v != nil {
		d.Errors = v(d.Draft)
		if len(d.Errors) > 0 {
			return false
		}
	}
	d.Errors = jobs.FieldErrors{}
	next := NextEnabled(d.pages, d.page, d.Draft)
	if next == d.page {
		return false
	}
	d.page = next
	return true
}

// Back never validates.
func (d *Designer) Back() {
	d.Errors = jobs.FieldErrors{}
	d.page = PrevEnabled(d.pages, d.page, d.Draft)
}

// Save validates the whole draft and stores it in place or appends it.
func (d *Designer) Save() error {
	if errs := d.Draft.Validate(); len(errs) > 0 {
		d.Errors = errs
		return errs
	}
	p := d.Draft.Normalized()
	if d.index >= 0 {
		if err := d.Update(d.index, p); err != nil {
			return err
		}
	} else {
		d.Primers = append(d.Primers, p)
	}
	d.Cancel()
	return nil
}

func (d *Designer) Update(i int, p jobs.Primer) error {
	if i < 0 || i >= len(d.Primers) {
		return fmt.Errorf("no primer at position %d", i)
	}
	d.Primers[i] = p
	return nil
}

func (d *Designer) Delete(i int) error {
	if i < 0 || i >= len(d.Primers) {
		return fmt.Errorf("no primer at position %d", i)
	}
	d.Primers = append(d.Primers[:i], d.Primers[i+1:]...)
	return nil
}

func (d *Designer) DeleteByRegion(region string) {
	d.Primers = lo.Filter(d.Primers, func(p jobs.Primer, _ int) bool { return p.Region != region })
}

// TogglePreset adds a preset primer, or removes it when its region is
// already in the list.
func (d *Designer) TogglePreset(preset jobs.Primer) {
	if d.HasRegion(preset.Region) {
		d.DeleteByRegion(preset.Region)
		return
	}
	d.Primers = append(d.Primers, preset)
}

func (d *Designer) HasRegion(region string) bool {
	return lo.ContainsBy(d.Primers, func(p jobs.Primer) bool { return p.Region == region })
}

// Set assigns a draft field from loosely typed input. Numbers that do
// not parse become nil (or zero for supermajority) and are reported by
// the page validation.
func (d *Designer) Set(field string, value interface{}) error {
	p := &d.Draft
	switch field {
	case "region":
		p.Region = cast.ToString(value)
	case "forward":
		p.Forward = cast.ToString(value)
	case "cdna":
		p.Cdna = cast.ToString(value)
	case "supermajority":
		p.Supermajority = cast.ToFloat64(value)
	case "allowIndels":
		p.AllowIndels = cast.ToBool(value)
	case "endJoin":
		p.EndJoin = cast.ToBool(value)
	case "endJoinOption":
		if n := intOrNil(value); n != nil {
			p.EndJoinOption = *n
		} else {
			p.EndJoinOption = 0
		}
	case "endJoinOverlap":
		p.EndJoinOverlap = intOrNil(value)
	case "qc":
		p.Qc = cast.ToBool(value)
	case "refGenome":
		p.RefGenome = constants.Genome(cast.ToString(value))
	case "refStart":
		p.RefStart = intOrNil(value)
	case "refEnd":
		p.RefEnd = intOrNil(value)
	case "trim":
		p.Trim = cast.ToBool(value)
	case "trimGenome":
		p.TrimGenome = constants.Genome(cast.ToString(value))
	case "trimStart":
		p.TrimStart = intOrNil(value)
	case "trimEnd":
		p.TrimEnd = intOrNil(value)
	default:
		return fmt.Errorf("unknown primer field %q", field)
	}
	delete(d.Errors, field)
	return nil
}

func intOrNil(value interface{}) *int {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		// cast reads a leading zero as octal
		if t := strings.TrimLeft(s, "0"); t != s {
			if t == "" {
				t = "0"
			}
			s = t
		}
		value = s
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return nil
	}
	return &n
}
