package geocoding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	columnState    = "Official Name State"
	columnSuburb   = "Official Name Suburb"
	columnGeoPoint = "Geo Point"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type gazetteerEntry struct {
	suburb string
	point  Point
}

// Gazetteer is an in-memory index of the georef-australia-state-suburb
// dataset, keyed by lowercase state name with suburbs sorted for prefix scans.
type Gazetteer struct {
	states map[string][]gazetteerEntry
}

// LoadGazetteer reads the ';'-separated georef CSV at path.
func LoadGazetteer(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := ParseGazetteer(f)
	if err != nil {
		return nil, fmt.Errorf("load gazetteer %s: %w", path, err)
	}
	return g, nil
}

// ParseGazetteer reads gazetteer rows from r. Rows with an unparseable
// "Geo Point" are skipped.
func ParseGazetteer(r io.Reader) (*Gazetteer, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	stateIdx, suburbIdx, pointIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case columnState:
			stateIdx = i
		case columnSuburb:
			suburbIdx = i
		case columnGeoPoint:
			pointIdx = i
		}
	}
	if stateIdx < 0 || suburbIdx < 0 || pointIdx < 0 {
		return nil, fmt.Errorf("missing columns: need %q, %q and %q", columnState, columnSuburb, columnGeoPoint)
	}

	g := &Gazetteer{states: make(map[string][]gazetteerEntry)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) <= max(stateIdx, suburbIdx, pointIdx) {
			continue
		}
		point, ok := parseGeoPoint(record[pointIdx])
		if !ok {
			continue
		}
		state := strings.ToLower(strings.TrimSpace(record[stateIdx]))
		g.states[state] = append(g.states[state], gazetteerEntry{
			suburb: strings.ToLower(strings.TrimSpace(record[suburbIdx])),
			point:  point,
		})
	}

	for state := range g.states {
		entries := g.states[state]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].suburb < entries[j].suburb })
	}
	return g, nil
}

// Lookup averages the points of every suburb in state whose name starts with
// suburb. Both arguments must already be lowercase.
func (g *Gazetteer) Lookup(state, suburb string) (Point, bool) {
	if g == nil {
		return Point{}, false
	}
	entries := g.states[state]
	start := sort.Search(len(entries), func(i int) bool { return entries[i].suburb >= suburb })

	var sum Point
	n := 0
	for _, e := range entries[start:] {
		if !strings.HasPrefix(e.suburb, suburb) {
			break
		}
		sum.Lat += e.point.Lat
		sum.Lng += e.point.Lng
		n++
	}
	if n == 0 {
		return Point{}, false
	}
	return Point{Lat: sum.Lat / float64(n), Lng: sum.Lng / float64(n)}, true
}

// Len returns the number of indexed suburbs.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, entries := range g.states {
		n += len(entries)
	}
	return n
}

// parseGeoPoint accepts "lat, lng".
func parseGeoPoint(raw string) (Point, bool) {
	latRaw, lngRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return Point{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return Point{}, false
	}
	return Point{Lat: lat, Lng: lng}, true
}
