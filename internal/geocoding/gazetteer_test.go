package geocoding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleGazetteer = "\ufeffGeo Point;Geo Shape;Official Code State;Official Name State;Official Name Suburb\n" +
	"-33.90, 151.22;{};1;New South Wales;Kensington\n" +
	"-33.92, 151.24;{};1;New South Wales;Kensington (NSW)\n" +
	"-37.79, 144.93;{};2;Victoria;Kensington (Vic.)\n" +
	"-33.87, 151.21;{};1;New South Wales;Sydney\n" +
	"not-a-point;{};1;New South Wales;Broken\n" +
	"-33.88, 151.19;{};1;New South Wales;Ultimo\n"

func TestParseGazetteerAndLookup(t *testing.T) {
	g, err := ParseGazetteer(strings.NewReader(sampleGazetteer))
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())

	point, ok := g.Lookup("new south wales", "kensington")
	require.True(t, ok)
	require.InDelta(t, -33.91, point.Lat, 1e-9)
	require.InDelta(t, 151.23, point.Lng, 1e-9)

	point, ok = g.Lookup("victoria", "kensington")
	require.True(t, ok)
	require.InDelta(t, 144.93, point.Lng, 1e-9)

	_, ok = g.Lookup("new south wales", "broken")
	require.False(t, ok)
	_, ok = g.Lookup("tasmania", "kensington")
	require.False(t, ok)
	_, ok = g.Lookup("new south wales", "zetland")
	require.False(t, ok)
}

func TestParseGazetteerMissingColumns(t *testing.T) {
	_, err := ParseGazetteer(strings.NewReader("Geo Point;Suburb\n1, 2;x\n"))
	require.ErrorContains(t, err, "missing columns")
}

func TestLoadGazetteer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "georef.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleGazetteer), 0o600))

	g, err := LoadGazetteer(path)
	require.NoError(t, err)
	_, ok := g.Lookup("new south wales", "ultimo")
	require.True(t, ok)

	_, err = LoadGazetteer(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorContains(t, err, "open gazetteer")
}

func TestNilGazetteer(t *testing.T) {
	var g *Gazetteer
	_, ok := g.Lookup("victoria", "carlton")
	require.False(t, ok)
	require.Zero(t, g.Len())
}

func TestNormalizeState(t *testing.T) {
	for input, want := range map[string]string{
		"NSW":               "new south wales",
		" vic ":             "victoria",
		"Western Australia": "western australia",
		"act":               "australian capital territory",
	} {
		got, ok := NormalizeState(input)
		require.True(t, ok, input)
		require.Equal(t, want, got)
	}

	_, ok := NormalizeState("Ontario")
	require.False(t, ok)
}
