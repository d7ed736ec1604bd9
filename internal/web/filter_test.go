package web

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		wantText     string
		wantEntities []string
		wantTopics   []string
		wantNulls    bool
	}{
		{
			name:      "initial page load defaults to including null dates",
			target:    "/",
			wantNulls: true,
		},
		{
			name:      "submitted form without checkbox excludes null dates",
			target:    "/search?s=1",
			wantNulls: false,
		},
		{
			name:      "submitted checkbox includes null dates",
			target:    "/search?s=1&null_dates=1",
			wantNulls: true,
		},
		{
			name:     "text query",
			target:   "/search?s=1&q=vaccine+distribution",
			wantText: "vaccine distribution",
		},
		{
			name:         "entity selections from all three dropdowns merge",
			target:       "/search?s=1&persons=Anthony+Fauci&persons=Deborah+Birx&orgs=CDC&locations=Wuhan",
			wantEntities: []string{"Anthony Fauci", "Deborah Birx", "CDC", "Wuhan"},
		},
		{
			name:       "topics",
			target:     "/search?s=1&topics=testing&topics=travel",
			wantTopics: []string{"testing", "travel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)

			form, filter, err := parseFilter(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantText, filter.Text)
			assert.Equal(t, tt.wantEntities, filter.Entities)
			assert.Equal(t, tt.wantTopics, filter.Topics)
			assert.Equal(t, tt.wantNulls, filter.IncludeNullDates)
			assert.Equal(t, tt.wantNulls, form.IncludeNullDates)
		})
	}
}

func TestParseFilter_Dates(t *testing.T) {
	req := httptest.NewRequest("GET", "/search?s=1&date_from=2020-03-01&date_to=2020-06-30", nil)

	form, filter, err := parseFilter(req)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), filter.DateFrom)
	assert.Equal(t, time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC), filter.DateTo)
	assert.Equal(t, "2020-03-01", form.DateFrom)
	assert.Equal(t, "2020-06-30", form.DateTo)
}

func TestParseFilter_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "garbage start date", target: "/search?s=1&date_from=whenever"},
		{name: "garbage end date", target: "/search?s=1&date_to=eventually"},
		{name: "inverted range", target: "/search?s=1&date_from=2020-06-30&date_to=2020-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)

			_, _, err := parseFilter(req)
			assert.Error(t, err)
		})
	}
}
