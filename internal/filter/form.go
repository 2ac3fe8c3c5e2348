package filter

import (
	"github.com/pkg/errors"
)

var ErrUnknownDistrict = errors.New("district does not belong to region")

// Form is the listing search filter state.
type Form struct {
	Category string `json:"category,omitempty"`
	Region   string `json:"region,omitempty"`
	District string `json:"district,omitempty"`
	Query    string `json:"q,omitempty"`
}

// WithRegion selects region and always clears the district.
func (f Form) WithRegion(region string) Form {
	f.Region = region
	f.District = ""
	return f
}

func (f Form) WithDistrict(t *Table, district string) (Form, error) {
	if district == "" {
		f.District = ""
		return f, nil
	}
	if !t.HasDistrict(f.Region, district) {
		return f, errors.Wrapf(ErrUnknownDistrict, "%q in %q", district, f.Region)
	}
	f.District = district
	return f, nil
}

// Normalize builds a consistent form from raw input: an unknown region is
// dropped together with the district, and a district outside the region is dropped.
func (t *Table) Normalize(raw Form) Form {
	f := Form{Category: raw.Category, Query: raw.Query}
	if raw.Region == "" || !t.HasRegion(raw.Region) {
		return f
	}
	f = f.WithRegion(raw.Region)
	if withDistrict, err := f.WithDistrict(t, raw.District); err == nil {
		f = withDistrict
	}
	return f
}

type Options struct {
	Regions   []string `json:"regions"`
	Districts []string `json:"districts"`
}

// Options lists the selectable values for f.
func (t *Table) Options(f Form) Options {
	districts := t.Districts(f.Region)
	if districts == nil {
		districts = []string{}
	}
	return Options{Regions: t.Regions(), Districts: districts}
}
