package weather

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// InitLayout is the format of the "init" field, always UTC.
const InitLayout = "2006010215"

// stepHours is the spacing between civil-product data points.
const stepHours = 3

// Forecast is the 7Timer! "civil" product response.
type Forecast struct {
	Product    string      `json:"product"`
	Init       string      `json:"init"`
	Dataseries []DataPoint `json:"dataseries"`
}

type DataPoint struct {
	Timepoint  int     `json:"timepoint"`
	CloudCover int     `json:"cloudcover"`
	LiftedIdx  int     `json:"lifted_index"`
	PrecType   string  `json:"prec_type"`
	PrecAmount int     `json:"prec_amount"`
	Temp2m     float64 `json:"temp2m"`
	Rh2m       string  `json:"rh2m"`
	Wind10m    Wind    `json:"wind10m"`
	Weather    string  `json:"weather"`
}

type Wind struct {
	Direction string  `json:"direction"`
	Speed     float64 `json:"speed"`
}

// InitTime parses the forecast's start time.
func (f *Forecast) InitTime() (time.Time, error) {
	t, err := time.ParseInLocation(InitLayout, f.Init, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse forecast init %q: %w", f.Init, err)
	}
	return t, nil
}

// Select picks the data point that describes the window [from, to].
//
// The index of a point is round(hours/3)-1 where hours are counted from init,
// rounding half to even. The end of the window is truncated to whole hours
// first. A window that starts before the first point but reaches it uses the
// first point; otherwise the start must fall inside the series.
func (f *Forecast) Select(from, to time.Time) (*DataPoint, bool) {
	init, err := f.InitTime()
	if err != nil {
		return nil, false
	}

	fromHours := from.Sub(init).Hours()
	toHours := math.Floor(to.Sub(init).Hours())
	fromIndex := int(math.RoundToEven(fromHours/stepHours)) - 1
	toIndex := int(math.RoundToEven(toHours/stepHours)) - 1

	var index int
	switch {
	case fromIndex < 0 && toIndex >= 0:
		index = 0
	case fromIndex >= 0 && fromIndex < len(f.Dataseries):
		index = fromIndex
	default:
		return nil, false
	}
	if index >= len(f.Dataseries) {
		return nil, false
	}
	return &f.Dataseries[index], true
}

// WindSpeed renders the speed the way it is shown to API clients.
func (p DataPoint) WindSpeed() string {
	return formatNumber(p.Wind10m.Speed) + " KM"
}

func (p DataPoint) Temperature() string {
	return formatNumber(p.Temp2m) + " C"
}

// TemperatureValue is the bare temperature used on the weather map.
func (p DataPoint) TemperatureValue() string {
	return formatNumber(p.Temp2m)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
