package events

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

type Link struct {
	Href string `json:"href"`
}

type Links struct {
	Self     Link  `json:"self"`
	Previous *Link `json:"previous,omitempty"`
	Next     *Link `json:"next,omitempty"`
}

// ListPage is one window of the event list.
type ListPage struct {
	Page     int      `json:"page"`
	PageSize int      `json:"page-size"`
	Events   []Record `json:"events"`
	Links    Links    `json:"_links"`
}

// ListResult is what the store returns for a plan. HasNext is true when at
// least one row exists past the requested window.
type ListResult struct {
	Events  []Event
	HasNext bool
}

// PageLinks builds self and next links. Self repeats the caller's raw
// parameters verbatim; next differs only in the page number.
func PageLinks(plan QueryPlan, hasNext bool) Links {
	links := Links{Self: Link{Href: listHref(plan.Raw, plan.Raw.Page)}}
	if hasNext && plan.Page < math.MaxInt {
		links.Next = &Link{Href: listHref(plan.Raw, strconv.Itoa(plan.Page+1))}
	}
	return links
}

func listHref(raw RawQuery, page string) string {
	return fmt.Sprintf("/events?order=%s&page=%s&size=%s&filter=%s",
		linkValue(raw.Order), linkValue(page), linkValue(raw.Size), linkValue(raw.Filter))
}

// linkValue escapes v for a query string but leaves '+' and ',' readable.
// A literal '+' is read back as a sign, so spaces must not become '+'.
var linkValueReplacer = strings.NewReplacer("+", "%20", "%2B", "+", "%2C", ",")

func linkValue(v string) string {
	return linkValueReplacer.Replace(url.QueryEscape(v))
}

func newListPage(plan QueryPlan, result ListResult) *ListPage {
	records := make([]Record, 0, len(result.Events))
	for _, event := range result.Events {
		records = append(records, Project(event, plan.Fields))
	}
	return &ListPage{
		Page:     plan.Page,
		PageSize: plan.Size,
		Events:   records,
		Links:    PageLinks(plan, result.HasNext),
	}
}
