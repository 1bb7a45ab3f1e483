package events

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQueryDefaults(t *testing.T) {
	plan, err := ParseQuery(url.Values{})

	require.NoError(t, err)
	require.Equal(t, 1, plan.Page)
	require.Equal(t, 10, plan.Size)
	require.Equal(t, 0, plan.Offset())
	require.Equal(t, 10, plan.Limit())
	require.Equal(t, []SortKey{{Column: ColumnID}}, plan.Sort)
	require.Equal(t, []Field{FieldID, FieldName}, plan.Fields)
	require.Equal(t, RawQuery{Order: "+id", Page: "1", Size: "10", Filter: "id,name"}, plan.Raw)
}

func TestParseQueryOffset(t *testing.T) {
	values := url.Values{}
	values.Set("page", "3")
	values.Set("size", "7")

	plan, err := ParseQuery(values)

	require.NoError(t, err)
	require.Equal(t, 14, plan.Offset())
	require.Equal(t, 7, plan.Limit())
}

func TestParseQueryAcceptsLargeSize(t *testing.T) {
	values := url.Values{}
	values.Set("size", "1000")

	plan, err := ParseQuery(values)

	require.NoError(t, err)
	require.Equal(t, 1000, plan.Limit())
	require.Equal(t, 1001, plan.FetchLimit())
}

func TestParseQueryHugePageSaturatesOffset(t *testing.T) {
	tests := []struct {
		name string
		page string
		size string
	}{
		{name: "product overflows", page: "1844674407370955162", size: "10"},
		{name: "max page", page: "9223372036854775807", size: "1"},
		{name: "max size", page: "2", size: "9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set("page", tt.page)
			values.Set("size", tt.size)

			plan, err := ParseQuery(values)

			require.NoError(t, err)
			require.GreaterOrEqual(t, plan.Offset(), 0)
			require.Greater(t, plan.FetchLimit(), 0)
		})
	}
}

func TestPageLinksStopAtLastAddressablePage(t *testing.T) {
	values := url.Values{}
	values.Set("page", "9223372036854775807")
	values.Set("size", "1")
	plan, err := ParseQuery(values)
	require.NoError(t, err)
	require.Equal(t, math.MaxInt, plan.Page)

	links := PageLinks(plan, true)

	require.Nil(t, links.Next)
	require.Equal(t, "/events?order=+id&page=9223372036854775807&size=1&filter=id,name", links.Self.Href)
}

func TestPageLinksEscapeReservedCharacters(t *testing.T) {
	plan := QueryPlan{
		Page: 1,
		Size: 10,
		Raw:  RawQuery{Order: "+name,-datetime", Page: "1", Size: "10", Filter: "id&x=1#frag"},
	}

	links := PageLinks(plan, true)

	require.Equal(t, "/events?order=+name,-datetime&page=1&size=10&filter=id%26x%3D1%23frag", links.Self.Href)
	require.Equal(t, "/events?order=+name,-datetime&page=2&size=10&filter=id%26x%3D1%23frag", links.Next.Href)

	parsed, err := url.Parse(links.Self.Href)
	require.NoError(t, err)
	require.Equal(t, "id&x=1#frag", parsed.Query().Get("filter"))
}

func TestParseQueryPaginationErrors(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		size    string
		message string
	}{
		{name: "page not a number", page: "abc", size: "10", message: "Page is not a number"},
		{name: "empty page", page: "", size: "10", message: "Page is not a number"},
		{name: "zero page", page: "0", size: "10", message: "Invalid page number, it must be positive"},
		{name: "negative page", page: "-2", size: "10", message: "Invalid page number, it must be positive"},
		{name: "size not a number", page: "1", size: "1.5", message: "Page size is not a number"},
		{name: "zero size", page: "1", size: "0", message: "Invalid page size, it must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			values.Set("page", tt.page)
			values.Set("size", tt.size)

			_, err := ParseQuery(values)

			assertValidation(t, err, KindPagination, tt.message)
		})
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name  string
		order string
		want  []SortKey
	}{
		{
			name:  "single id key has no extra tiebreak",
			order: "+id",
			want:  []SortKey{{Column: ColumnID}},
		},
		{
			name:  "datetime maps to start time",
			order: "-datetime",
			want:  []SortKey{{Column: ColumnFromTime, Desc: true}, {Column: ColumnID}},
		},
		{
			name:  "composite keeps order and trims spaces",
			order: " +name , -datetime ",
			want: []SortKey{
				{Column: ColumnName},
				{Column: ColumnFromTime, Desc: true},
				{Column: ColumnID},
			},
		},
		{
			name:  "explicit id descending is kept as the last key",
			order: "+name,-id",
			want:  []SortKey{{Column: ColumnName}, {Column: ColumnID, Desc: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := ParseOrder(tt.order)
			require.NoError(t, err)
			require.Equal(t, tt.want, keys)
		})
	}
}

func TestParseOrderErrors(t *testing.T) {
	tests := []struct {
		order   string
		message string
	}{
		{order: "", message: `Invalid sort order, ""`},
		{order: "+", message: `Invalid sort order, "+"`},
		{order: "+id,", message: `Invalid sort order, ""`},
		{order: "+id,x", message: `Invalid sort order, "x"`},
		{order: "id", message: "Invalid order, id"},
		{order: "*name", message: "Invalid order, *name"},
		{order: "+location", message: "Invalid order attribute, +location"},
		{order: "+id,-colour", message: "Invalid order attribute, -colour"},
		{order: "+name,-from_time", message: "Invalid order attribute, -from_time"},
	}

	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			_, err := ParseOrder(tt.order)
			assertValidation(t, err, KindOrder, tt.message)
		})
	}
}

func TestParseFilter(t *testing.T) {
	fields, err := ParseFilter("location, date,from,to,name,id,date")

	require.NoError(t, err)
	require.Equal(t, []Field{FieldLocation, FieldDate, FieldFrom, FieldTo, FieldName, FieldID}, fields)
}

func TestParseFilterRejectsUnknownField(t *testing.T) {
	_, err := ParseFilter("id,description")

	assertValidation(t, err, KindFilter, "Invalid filter field, description")
}

func TestQueryPlanColumnsDeduplicates(t *testing.T) {
	plan := QueryPlan{Fields: []Field{FieldFrom, FieldDate, FieldLocation, FieldTo}}

	require.Equal(t, []Column{
		ColumnID, ColumnFromTime, ColumnStreet, ColumnSuburb, ColumnState, ColumnPostCode, ColumnToTime,
	}, plan.Columns())
}

func TestParseQueryChecksPaginationBeforeOrder(t *testing.T) {
	values := url.Values{}
	values.Set("page", "x")
	values.Set("order", "bogus")

	_, err := ParseQuery(values)

	assertValidation(t, err, KindPagination, "Page is not a number")
}

func assertValidation(t *testing.T, err error, kind ValidationKind, message string) {
	t.Helper()
	require.Error(t, err)
	var validation ValidationError
	require.True(t, errors.As(err, &validation), "expected ValidationError, got %T", err)
	require.Equal(t, kind, validation.Kind)
	require.Equal(t, message, validation.Message)
	require.Equal(t, message, Message(err))
}
