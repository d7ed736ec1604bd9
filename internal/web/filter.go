package web

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/araddon/dateparse"

	"github.com/benjlis/covid19-search/internal/query"
)

// Form parameter names. The hidden "s" marker distinguishes a submitted
// form (where an unchecked checkbox sends nothing) from the initial page
// load (where the null-date option defaults to on).
const (
	paramText      = "q"
	paramPersons   = "persons"
	paramOrgs      = "orgs"
	paramLocations = "locations"
	paramTopics    = "topics"
	paramDateFrom  = "date_from"
	paramDateTo    = "date_to"
	paramNullDates = "null_dates"
	paramSubmitted = "s"
)

// parseFilter maps the request's query parameters to the search filter
// plus the form state that re-renders them.
func parseFilter(r *http.Request) (FormState, query.Filter, error) {
	values := r.URL.Query()

	form := FormState{
		Text:             values.Get(paramText),
		Persons:          values[paramPersons],
		Orgs:             values[paramOrgs],
		Locations:        values[paramLocations],
		Topics:           values[paramTopics],
		DateFrom:         values.Get(paramDateFrom),
		DateTo:           values.Get(paramDateTo),
		IncludeNullDates: includeNullDates(values),
	}

	filter := query.Filter{
		Text:             form.Text,
		Topics:           form.Topics,
		IncludeNullDates: form.IncludeNullDates,
	}

	// Person, organization, and location selections all filter the same
	// entity annotations.
	filter.Entities = append(filter.Entities, form.Persons...)
	filter.Entities = append(filter.Entities, form.Orgs...)
	filter.Entities = append(filter.Entities, form.Locations...)

	if form.DateFrom != "" {
		from, err := dateparse.ParseStrict(form.DateFrom)
		if err != nil {
			return form, filter, fmt.Errorf("invalid start date %q", form.DateFrom)
		}

		filter.DateFrom = from
	}

	if form.DateTo != "" {
		to, err := dateparse.ParseStrict(form.DateTo)
		if err != nil {
			return form, filter, fmt.Errorf("invalid end date %q", form.DateTo)
		}

		filter.DateTo = to
	}

	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && filter.DateTo.Before(filter.DateFrom) {
		return form, filter, fmt.Errorf("date range inverted: %s after %s", form.DateFrom, form.DateTo)
	}

	return form, filter, nil
}

func includeNullDates(values url.Values) bool {
	if !values.Has(paramSubmitted) {
		return true
	}

	return values.Get(paramNullDates) != ""
}
