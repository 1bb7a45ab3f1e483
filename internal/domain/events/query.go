package events

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultOrder  = "+id"
	DefaultFilter = "id,name"
	DefaultPage   = 1
	DefaultSize   = 10
)

// Column is a storage column name. Only these values are ever written into
// SQL text; everything user supplied travels as a bind parameter.
type Column string

const (
	ColumnID          Column = "id"
	ColumnLastUpdate  Column = "last_update"
	ColumnName        Column = "name"
	ColumnFromTime    Column = "from_time"
	ColumnToTime      Column = "to_time"
	ColumnStreet      Column = "street"
	ColumnSuburb      Column = "suburb"
	ColumnState       Column = "state"
	ColumnPostCode    Column = "post_code"
	ColumnDescription Column = "description"
)

// AllColumns is the full row in table order.
var AllColumns = []Column{
	ColumnID, ColumnLastUpdate, ColumnName, ColumnFromTime, ColumnToTime,
	ColumnStreet, ColumnSuburb, ColumnState, ColumnPostCode, ColumnDescription,
}

var sortColumns = map[string]Column{
	"id":       ColumnID,
	"name":     ColumnName,
	"datetime": ColumnFromTime,
}

type SortKey struct {
	Column Column
	Desc   bool
}

func (k SortKey) Direction() string {
	if k.Desc {
		return "DESC"
	}
	return "ASC"
}

// RawQuery holds the list parameters exactly as the caller sent them, with
// defaults filled in for absent ones. Links echo these values back.
type RawQuery struct {
	Order  string
	Page   string
	Size   string
	Filter string
}

type QueryPlan struct {
	Sort   []SortKey
	Fields []Field
	Page   int
	Size   int
	Raw    RawQuery
}

// Offset saturates at math.MaxInt for pages too far out to address, which
// the store answers with an empty window.
func (p QueryPlan) Offset() int {
	if p.Page <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

func (p QueryPlan) Limit() int {
	return p.Size
}

// FetchLimit is Limit plus the one extra row used to detect a next page.
func (p QueryPlan) FetchLimit() int {
	if p.Size == math.MaxInt {
		return p.Size
	}
	return p.Size + 1
}

// Columns is the deduplicated storage projection needed to render Fields.
// The id column is always present so rows stay addressable.
func (p QueryPlan) Columns() []Column {
	seen := map[Column]bool{ColumnID: true}
	columns := []Column{ColumnID}
	for _, field := range p.Fields {
		for _, column := range projections[field].columns {
			if seen[column] {
				continue
			}
			seen[column] = true
			columns = append(columns, column)
		}
	}
	return columns
}

// ParseQuery validates untrusted list parameters. Checks run in the order
// page, size, order, filter so the first problem reported is stable.
func ParseQuery(values url.Values) (QueryPlan, error) {
	raw := RawQuery{
		Order:  valueOr(values, "order", DefaultOrder),
		Page:   valueOr(values, "page", strconv.Itoa(DefaultPage)),
		Size:   valueOr(values, "size", strconv.Itoa(DefaultSize)),
		Filter: valueOr(values, "filter", DefaultFilter),
	}
	plan := QueryPlan{Raw: raw}

	page, err := strconv.Atoi(strings.TrimSpace(raw.Page))
	if err != nil {
		return plan, ValidationError{Kind: KindPagination, Field: "page", Message: "Page is not a number"}
	}
	if page < 1 {
		return plan, ValidationError{Kind: KindPagination, Field: "page", Message: "Invalid page number, it must be positive"}
	}
	size, err := strconv.Atoi(strings.TrimSpace(raw.Size))
	if err != nil {
		return plan, ValidationError{Kind: KindPagination, Field: "size", Message: "Page size is not a number"}
	}
	if size < 1 {
		return plan, ValidationError{Kind: KindPagination, Field: "size", Message: "Invalid page size, it must be positive"}
	}
	plan.Page = page
	plan.Size = size

	sort, err := ParseOrder(raw.Order)
	if err != nil {
		return plan, err
	}
	plan.Sort = sort

	fields, err := ParseFilter(raw.Filter)
	if err != nil {
		return plan, err
	}
	plan.Fields = fields

	return plan, nil
}

// ParseOrder turns "+name,-datetime" into sort keys and appends an id
// ascending tiebreak unless id is already one of the keys.
func ParseOrder(order string) ([]SortKey, error) {
	tokens := strings.Split(order, ",")
	keys := make([]SortKey, 0, len(tokens)+1)
	hasID := false
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if len(token) < 2 {
			return nil, ValidationError{Kind: KindOrder, Field: "order", Message: "Invalid sort order, " + strconv.Quote(token)}
		}
		sign, attr := token[0], token[1:]
		if sign != '+' && sign != '-' {
			return nil, ValidationError{Kind: KindOrder, Field: "order", Message: "Invalid order, " + token}
		}
		column, ok := sortColumns[attr]
		if !ok {
			return nil, ValidationError{Kind: KindOrder, Field: "order", Message: "Invalid order attribute, " + token}
		}
		if column == ColumnID {
			hasID = true
		}
		keys = append(keys, SortKey{Column: column, Desc: sign == '-'})
	}
	if !hasID {
		keys = append(keys, SortKey{Column: ColumnID})
	}
	return keys, nil
}

// ParseFilter keeps the caller's order and drops repeated fields.
func ParseFilter(filter string) ([]Field, error) {
	tokens := strings.Split(filter, ",")
	fields := make([]Field, 0, len(tokens))
	seen := make(map[Field]bool, len(tokens))
	for _, token := range tokens {
		field := Field(strings.TrimSpace(token))
		if _, ok := projections[field]; !ok {
			return nil, ValidationError{Kind: KindFilter, Field: "filter", Message: "Invalid filter field, " + string(field)}
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	return fields, nil
}

func valueOr(values url.Values, key, fallback string) string {
	if _, ok := values[key]; !ok {
		return fallback
	}
	return values.Get(key)
}
