package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/fetch"
	"github.com/spf13/cobra"
)

type eventsOptions struct {
	serverURL string
	format    string
	order     string
	page      int
	size      int
	filter    string
	timeout   time.Duration
}

func newEventsCommand() *cobra.Command {
	opts := &eventsOptions{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query events from an AusCal server",
		Long: `Query and list events from a running AusCal server.

Examples:
  # List the first page of events
  auscal events

  # Newest first, with dates
  auscal events --order -datetime --filter id,name,date,from,to

  # Show a single event with weather and holiday details
  auscal events get 42

  # Output raw JSON
  auscal events --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return listEvents(ctx, cmd.OutOrStdout(), opts)
		},
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a single event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return getEvent(ctx, cmd.OutOrStdout(), opts, args[0])
		},
	}
	cmd.AddCommand(get)

	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", "http://localhost:8080", "AusCal server URL")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "table", "output format (table, json)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")
	cmd.Flags().StringVar(&opts.order, "order", events.DefaultOrder, "sort keys, e.g. +datetime,-id")
	cmd.Flags().IntVarP(&opts.page, "page", "p", events.DefaultPage, "page number")
	cmd.Flags().IntVarP(&opts.size, "size", "n", events.DefaultSize, "events per page")
	cmd.Flags().StringVar(&opts.filter, "filter", events.DefaultFilter, "columns to show")
	return cmd
}

func newAPIClient() *fetch.Client {
	return fetch.New(fetch.WithRateLimit(0), fetch.WithRetries(1))
}

type listResponse struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page-size"`
	Events   []json.RawMessage `json:"events"`
	Links    events.Links      `json:"_links"`
}

func listEvents(ctx context.Context, out io.Writer, opts *eventsOptions) error {
	params := url.Values{}
	params.Set("order", opts.order)
	params.Set("page", strconv.Itoa(opts.page))
	params.Set("size", strconv.Itoa(opts.size))
	params.Set("filter", opts.filter)
	requestURL := strings.TrimRight(opts.serverURL, "/") + "/events?" + params.Encode()

	var raw json.RawMessage
	if err := newAPIClient().GetJSON(ctx, requestURL, &raw); err != nil {
		return apiError("list events", err)
	}
	if opts.format == "json" {
		return writeIndented(out, raw)
	}

	var page listResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		return fmt.Errorf("unexpected response format: %w", err)
	}
	if len(page.Events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}

	columns := splitColumns(opts.filter)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, item := range page.Events {
		var record map[string]any
		if err := json.Unmarshal(item, &record); err != nil {
			return fmt.Errorf("unexpected event format: %w", err)
		}
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = formatCell(record[column])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nPage %d, %d per page.", page.Page, page.PageSize)
	if page.Links.Next != nil {
		fmt.Fprintf(out, " More events available with --page %d.", page.Page+1)
	}
	fmt.Fprintln(out)
	return nil
}

type eventResponse struct {
	ID          int64           `json:"id"`
	LastUpdate  string          `json:"last-update"`
	Name        string          `json:"name"`
	Date        string          `json:"date"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Location    events.Location `json:"location"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"_metadata"`
}

func getEvent(ctx context.Context, out io.Writer, opts *eventsOptions, id string) error {
	requestURL := strings.TrimRight(opts.serverURL, "/") + "/events/" + url.PathEscape(id)

	var raw json.RawMessage
	if err := newAPIClient().GetJSON(ctx, requestURL, &raw); err != nil {
		return apiError("get event", err)
	}
	if opts.format == "json" {
		return writeIndented(out, raw)
	}

	var event eventResponse
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("unexpected response format: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", event.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", event.Name)
	fmt.Fprintf(tw, "When:\t%s %s-%s\n", event.Date, event.From, event.To)
	fmt.Fprintf(tw, "Where:\t%s\n", formatLocation(event.Location))
	if event.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", event.Description)
	}
	fmt.Fprintf(tw, "Last update:\t%s\n", event.LastUpdate)
	for _, key := range sortedKeys(event.Metadata) {
		fmt.Fprintf(tw, "%s:\t%s\n", key, formatCell(event.Metadata[key]))
	}
	return tw.Flush()
}

// apiError prefers the server's problem message over the raw body.
func apiError(op string, err error) error {
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal([]byte(statusErr.Body), &body) == nil && body.Message != "" {
			return fmt.Errorf("%s: server returned %d: %s", op, statusErr.Code, body.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func writeIndented(out io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}

func splitColumns(filter string) []string {
	var columns []string
	for _, column := range strings.Split(filter, ",") {
		if column = strings.TrimSpace(column); column != "" {
			columns = append(columns, column)
		}
	}
	return columns
}

func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case map[string]any:
		return formatLocation(events.Location{
			Street:   stringField(value, "street"),
			Suburb:   stringField(value, "suburb"),
			State:    stringField(value, "state"),
			PostCode: stringField(value, "post-code"),
		})
	default:
		return fmt.Sprint(value)
	}
}

func formatLocation(loc events.Location) string {
	var parts []string
	for _, part := range []string{loc.Street, loc.Suburb, strings.TrimSpace(loc.State + " " + loc.PostCode)} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
