package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Statistics struct {
	Total        int64
	CurrentWeek  int64
	CurrentMonth int64
	PerDay       []DayCount
}

func (st Statistics) MarshalJSON() ([]byte, error) {
	perDays := Record{}
	for _, day := range st.PerDay {
		perDays.Set(day.Day.Format(DateLayout), day.Count)
	}
	return json.Marshal(struct {
		Total        int64  `json:"total"`
		CurrentWeek  int64  `json:"total-current-week"`
		CurrentMonth int64  `json:"total-current-month"`
		PerDays      Record `json:"per-days"`
	}{st.Total, st.CurrentWeek, st.CurrentMonth, perDays})
}

// WeekBounds returns the Monday-to-Sunday week containing now as [start, end).
func WeekBounds(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns the calendar month containing now as [start, end).
func MonthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	now := s.clock()

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	weekStart, weekEnd := WeekBounds(now)
	week, err := s.repo.CountBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("count week events: %w", err)
	}
	monthStart, monthEnd := MonthBounds(now)
	month, err := s.repo.CountBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("count month events: %w", err)
	}
	perDay, err := s.repo.CountsPerDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events per day: %w", err)
	}

	return &Statistics{
		Total:        total,
		CurrentWeek:  week,
		CurrentMonth: month,
		PerDay:       perDay,
	}, nil
}

// ParseStatisticsFormat validates the format query parameter.
func ParseStatisticsFormat(raw string, present bool) (string, error) {
	if !present || raw == "" {
		return "", ValidationError{Kind: KindFormat, Field: "format", Message: "Missing required parameter: format"}
	}
	switch format := strings.ToLower(strings.TrimSpace(raw)); format {
	case "json", "image":
		return format, nil
	}
	return "", ValidationError{Kind: KindFormat, Field: "format", Message: "Invalid format!"}
}
