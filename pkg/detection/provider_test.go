package detection_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/dataset/datasettest"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

var (
	pixelUA   = datasettest.Join(datasettest.PixelChrome)
	windowsUA = datasettest.Join(datasettest.WindowsChrome)
	iphoneUA  = datasettest.Join(datasettest.IPhoneSafari)
	operaUA   = datasettest.Join(datasettest.OperaMini)
)

func newProvider(t *testing.T, ds *dataset.Dataset, opts ...detection.Option) *detection.Provider {
	t.Helper()
	opts = append([]detection.Option{detection.WithLogger(logger.Discard())}, opts...)
	p, err := detection.NewProvider(ds, opts...)
	require.NoError(t, err)
	return p
}

func valueString(t *testing.T, m *detection.Match, property string) string {
	t.Helper()
	v, err := m.ValueString(property)
	require.NoError(t, err)
	return v
}

func TestProvider_Exact(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	tests := []struct {
		ua      string
		rank    int32
		model   string
		browser string
	}{
		{pixelUA, datasettest.RankPixelChrome, "Pixel 5", "Chrome"},
		{windowsUA, datasettest.RankWindowsChrome, "Desktop", "Chrome"},
		{iphoneUA, datasettest.RankIPhoneSafari, "iPhone", "Mobile Safari"},
		{operaUA, datasettest.RankOperaMini, "Unknown", "Opera Mini"},
	}
	for _, tt := range tests {
		t.Run(tt.browser+" "+tt.model, func(t *testing.T) {
			m, err := p.MatchUserAgent(tt.ua)
			require.NoError(t, err)

			assert.Equal(t, detection.StateResultFound, m.State())
			assert.Equal(t, detection.MethodExact, m.Method())
			assert.Equal(t, 0, m.Difference())
			require.NotNil(t, m.Signature())
			assert.Equal(t, tt.ua, m.Signature().String())
			assert.Equal(t, tt.rank, m.Signature().Rank())

			assert.Equal(t, tt.model, valueString(t, m, datasettest.PropertyHardwareModel))
			assert.Equal(t, tt.browser, valueString(t, m, datasettest.PropertyBrowserName))

			profiles, err := m.Profiles()
			require.NoError(t, err)
			assert.Len(t, profiles, 3)
		})
	}
}

func TestProvider_Numeric(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	exact, err := p.MatchUserAgent(pixelUA)
	require.NoError(t, err)
	exactProfiles, err := exact.Profiles()
	require.NoError(t, err)

	tests := []struct {
		version    string
		difference int
	}{
		{"46.0", 1},
		{"44.0", 1},
		{"48.0", 3},
		{"12.0", 33},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			ua := strings.Replace(pixelUA, "45.0", tt.version, 1)
			m, err := p.MatchUserAgent(ua)
			require.NoError(t, err)

			assert.Equal(t, detection.MethodNumeric, m.Method())
			assert.Equal(t, tt.difference, m.Difference())
			require.NotNil(t, m.Signature())
			assert.Equal(t, pixelUA, m.Signature().String())

			profiles, err := m.Profiles()
			require.NoError(t, err)
			assert.Equal(t, exactProfiles, profiles)
			assert.Equal(t, "45", valueString(t, m, datasettest.PropertyBrowserVersion))
		})
	}

	t.Run("numbers of another width are not replaced", func(t *testing.T) {
		ua := strings.Replace(pixelUA, "45.0", "145.0", 1)
		m, err := p.MatchUserAgent(ua)
		require.NoError(t, err)
		assert.NotEqual(t, detection.MethodNumeric, m.Method())
	})

	t.Run("second header value", func(t *testing.T) {
		ua := strings.Replace(operaUA, "50.0", "51.0", 1)
		m, err := p.MatchUserAgent(ua)
		require.NoError(t, err)
		assert.Equal(t, detection.MethodNumeric, m.Method())
		assert.Equal(t, 1, m.Difference())
		assert.Equal(t, "50|50.0", valueString(t, m, datasettest.PropertyBrowserVersion))
	})
}

func TestProvider_Nearest(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	// One extra character shifts the three following fragments by one.
	ua := strings.Replace(pixelUA, "(Linux", "( Linux", 1)
	m, err := p.MatchUserAgent(ua)
	require.NoError(t, err)

	assert.Equal(t, detection.MethodNearest, m.Method())
	assert.Equal(t, 3, m.Difference())
	require.NotNil(t, m.Signature())
	assert.Equal(t, pixelUA, m.Signature().String())
	assert.Equal(t, "Pixel 5", valueString(t, m, datasettest.PropertyHardwareModel))
}

func TestProvider_Closest(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	ua := strings.Replace(pixelUA, "Pixel 5", "Pixel 6", 1)
	m, err := p.MatchUserAgent(ua)
	require.NoError(t, err)

	assert.Equal(t, detection.MethodClosest, m.Method())
	assert.Equal(t, 1, m.Difference())
	require.NotNil(t, m.Signature())
	assert.Equal(t, pixelUA, m.Signature().String())
}

func TestProvider_ClosestTieBreak(t *testing.T) {
	tests := []struct {
		name     string
		rankXYZ  int32
		rankXYX  int32
		expected string
	}{
		{"equal rank prefers lower offset", 10, 10, "abcxyz"},
		{"higher rank wins", 10, 20, "abcxyx"},
		{"higher rank wins when written first", 20, 10, "abcxyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := datasettest.OpenWriter(t, datasettest.DeterminismWriter(tt.rankXYZ, tt.rankXYX))
			p := newProvider(t, ds)

			m, err := p.MatchUserAgent("abcxyy")
			require.NoError(t, err)
			assert.Equal(t, detection.MethodClosest, m.Method())
			assert.Equal(t, 1, m.Difference())
			require.NotNil(t, m.Signature())
			assert.Equal(t, tt.expected, m.Signature().String())
			assert.Equal(t, tt.expected[3:], valueString(t, m, datasettest.PropertyHardwareModel))
		})
	}
}

func TestProvider_LongestFragment(t *testing.T) {
	w := &dataset.Writer{
		Headers: []string{datasettest.HeaderUserAgent},
		Components: []dataset.ComponentDef{{
			Name:    "HardwarePlatform",
			Headers: []string{datasettest.HeaderUserAgent},
			Properties: []dataset.PropertyDef{
				{Name: datasettest.PropertyHardwareModel, Type: dataset.ValueTypeString},
			},
		}},
		Profiles: []dataset.ProfileDef{
			{Component: "HardwarePlatform", ID: 1, Values: map[string][]string{datasettest.PropertyHardwareModel: {"short"}}},
			{Component: "HardwarePlatform", ID: 2, Values: map[string][]string{datasettest.PropertyHardwareModel: {"long"}}},
		},
		// "abc" extends "ab" at the same position; the shorter one ranks higher.
		Signatures: []dataset.SignatureDef{
			{Rank: 20, Profiles: []int32{1}, Nodes: []dataset.NodeDef{{Position: 0, Pattern: "ab"}, {Position: 4, Pattern: "z"}}},
			{Rank: 10, Profiles: []int32{2}, Nodes: []dataset.NodeDef{{Position: 0, Pattern: "abc"}, {Position: 4, Pattern: "z"}}},
		},
	}
	p := newProvider(t, datasettest.OpenWriter(t, w))

	tests := []struct {
		ua        string
		signature string
		model     string
	}{
		{"abcQz", "abc_z", "long"},
		{"abQQz", "ab__z", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.ua, func(t *testing.T) {
			m, err := p.MatchUserAgent(tt.ua)
			require.NoError(t, err)
			assert.Equal(t, detection.MethodExact, m.Method())
			assert.Zero(t, m.Difference())
			require.NotNil(t, m.Signature())
			assert.Equal(t, tt.signature, m.Signature().String())
			assert.Equal(t, tt.model, valueString(t, m, datasettest.PropertyHardwareModel))
		})
	}

	// every signature's own value resolves to itself
	offsets, err := p.Dataset().Signatures().Offsets()
	require.NoError(t, err)
	require.Len(t, offsets, 2)
	for _, off := range offsets {
		s, err := p.Dataset().Signatures().Get(off)
		require.NoError(t, err)
		m, err := p.MatchUserAgent(strings.ReplaceAll(s.String(), "_", "Q"))
		require.NoError(t, err)
		require.NotNil(t, m.Signature())
		assert.Equal(t, s.Offset(), m.Signature().Offset())
	}
}

func TestProvider_NoMatch(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	tests := map[string]map[string]string{
		"no headers":        {},
		"unknown header":    {"Accept": pixelUA},
		"empty value":       {datasettest.HeaderUserAgent: ""},
		"unrelated value":   {datasettest.HeaderUserAgent: "curl/8.0"},
		"nil header values": nil,
	}
	for name, headers := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := p.Match(headers)
			require.NoError(t, err)

			assert.Equal(t, detection.StateNoMatch, m.State())
			assert.True(t, m.State().Terminal())
			assert.Equal(t, detection.MethodNone, m.Method())
			assert.Nil(t, m.Signature())

			values, err := m.Values(datasettest.PropertyHardwareModel)
			require.NoError(t, err)
			assert.Nil(t, values)

			profiles, err := m.Profiles()
			require.NoError(t, err)
			assert.Empty(t, profiles)
		})
	}
}

func TestProvider_Methods(t *testing.T) {
	ds := datasettest.Open(t)
	numericUA := strings.Replace(pixelUA, "45.0", "46.0", 1)

	t.Run("exact only", func(t *testing.T) {
		p := newProvider(t, ds, detection.WithExactOnly())
		assert.Equal(t, []detection.Method{detection.MethodExact}, p.EnabledMethods())

		m, err := p.MatchUserAgent(numericUA)
		require.NoError(t, err)
		assert.Equal(t, detection.StateNoMatch, m.State())

		m, err = p.MatchUserAgent(pixelUA)
		require.NoError(t, err)
		assert.Equal(t, detection.MethodExact, m.Method())
	})

	t.Run("order is fixed", func(t *testing.T) {
		p := newProvider(t, ds, detection.WithMethods(detection.MethodClosest, detection.MethodExact, detection.MethodClosest))
		assert.Equal(t, []detection.Method{detection.MethodExact, detection.MethodClosest}, p.EnabledMethods())

		m, err := p.MatchUserAgent(numericUA)
		require.NoError(t, err)
		assert.Equal(t, detection.MethodClosest, m.Method())
		assert.Equal(t, 1, m.Difference())
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := detection.NewProvider(ds, detection.WithMethods(detection.Method(42)))
		assert.ErrorIs(t, err, detection.ErrUnknownMethod)

		_, err = detection.NewProvider(ds, detection.WithMethods(detection.MethodNone))
		assert.ErrorIs(t, err, detection.ErrUnknownMethod)
	})

	t.Run("nil dataset", func(t *testing.T) {
		_, err := detection.NewProvider(nil)
		assert.ErrorIs(t, err, detection.ErrNilDataset)
	})
}

func TestProvider_MultipleHeaders(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	t.Run("device header identifies hardware", func(t *testing.T) {
		m, err := p.Match(map[string]string{
			datasettest.HeaderUserAgent: operaUA,
			datasettest.HeaderOperaMini: iphoneUA,
		})
		require.NoError(t, err)

		assert.Equal(t, detection.StateResultFound, m.State())
		assert.Nil(t, m.Signature(), "several headers contributed")
		assert.Equal(t, detection.MethodExact, m.Method())
		assert.Equal(t, 0, m.Difference())
		assert.Len(t, m.Results(), 2)

		assert.Equal(t, "iPhone", valueString(t, m, datasettest.PropertyHardwareModel))
		assert.Equal(t, "iOS", valueString(t, m, datasettest.PropertyPlatformName))
		assert.Equal(t, "Opera Mini", valueString(t, m, datasettest.PropertyBrowserName))
	})

	t.Run("weakest method and summed difference", func(t *testing.T) {
		m, err := p.Match(map[string]string{
			datasettest.HeaderUserAgent:   strings.Replace(operaUA, "50.0", "52.0", 1),
			datasettest.HeaderDeviceStock: strings.Replace(pixelUA, "45.0", "46.0", 1),
		})
		require.NoError(t, err)

		assert.Nil(t, m.Signature())
		assert.Equal(t, detection.MethodNumeric, m.Method())
		assert.Equal(t, 3, m.Difference())
		assert.Equal(t, "Pixel 5", valueString(t, m, datasettest.PropertyHardwareModel))
		assert.Equal(t, "Opera Mini", valueString(t, m, datasettest.PropertyBrowserName))
	})

	t.Run("components without a header use defaults", func(t *testing.T) {
		m, err := p.Match(map[string]string{datasettest.HeaderUserAgent: operaUA})
		require.NoError(t, err)

		require.NotNil(t, m.Signature())
		assert.Equal(t, operaUA, m.Signature().String())
		assert.Equal(t, "Unknown", valueString(t, m, datasettest.PropertyHardwareModel))
		assert.Equal(t, "False", valueString(t, m, datasettest.PropertyIsMobile))
		assert.Equal(t, "Unknown", valueString(t, m, datasettest.PropertyPlatformName))
		assert.Equal(t, "", valueString(t, m, datasettest.PropertyPlatformVersion))
	})

	t.Run("browser header alone does not identify the browser", func(t *testing.T) {
		m, err := p.Match(map[string]string{datasettest.HeaderOperaMini: pixelUA})
		require.NoError(t, err)

		assert.Equal(t, "Pixel 5", valueString(t, m, datasettest.PropertyHardwareModel))
		assert.Equal(t, "Unknown", valueString(t, m, datasettest.PropertyBrowserName))
	})

	t.Run("header names ignore case", func(t *testing.T) {
		m, err := p.Match(map[string]string{"user-agent": windowsUA})
		require.NoError(t, err)
		assert.Equal(t, "Windows", valueString(t, m, datasettest.PropertyPlatformName))
	})
}

func TestProvider_MatchInto(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))

	m := p.CreateMatch()
	assert.Equal(t, detection.StateInitial, m.State())

	require.NoError(t, p.MatchInto(map[string]string{datasettest.HeaderUserAgent: pixelUA}, m))
	assert.Equal(t, "Pixel 5", valueString(t, m, datasettest.PropertyHardwareModel))

	require.NoError(t, p.MatchInto(map[string]string{datasettest.HeaderUserAgent: "curl/8.0"}, m))
	assert.Equal(t, detection.StateNoMatch, m.State())
	assert.Nil(t, m.Signature())

	require.NoError(t, p.MatchInto(map[string]string{datasettest.HeaderUserAgent: iphoneUA}, m))
	assert.Equal(t, "iPhone", valueString(t, m, datasettest.PropertyHardwareModel))

	assert.ErrorIs(t, p.MatchInto(nil, nil), detection.ErrNilMatch)
}

func TestProvider_UnknownProperty(t *testing.T) {
	p := newProvider(t, datasettest.Open(t))
	m, err := p.MatchUserAgent(pixelUA)
	require.NoError(t, err)

	_, err = m.Values("ScreenPixelsWidth")
	assert.ErrorIs(t, err, dataset.ErrPropertyNotFound)
}

func TestProvider_ResultCache(t *testing.T) {
	t.Run("repeated values hit the cache", func(t *testing.T) {
		p := newProvider(t, datasettest.Open(t))
		for range 3 {
			m, err := p.MatchUserAgent(pixelUA)
			require.NoError(t, err)
			assert.Equal(t, detection.MethodExact, m.Method())
		}
		assert.Equal(t, uint64(3), p.ResultCache().Requests())
		assert.Equal(t, uint64(1), p.ResultCache().Misses())
		assert.Equal(t, 1, p.ResultCache().Len())
	})

	t.Run("disabled", func(t *testing.T) {
		p := newProvider(t, datasettest.Open(t), detection.WithResultCacheSize(0))
		m := p.CreateMatch()
		require.NoError(t, p.MatchInto(map[string]string{datasettest.HeaderUserAgent: pixelUA}, m))
		require.NoError(t, p.MatchInto(map[string]string{datasettest.HeaderUserAgent: pixelUA}, m))
		assert.Equal(t, 0, p.ResultCache().Len())
		assert.Equal(t, 1.0, p.ResultCache().MissRatio())
	})
}

func TestProvider_Closed(t *testing.T) {
	ds := datasettest.Open(t)
	p := newProvider(t, ds)

	m, err := p.MatchUserAgent(pixelUA)
	require.NoError(t, err)

	require.NoError(t, ds.Close())

	_, err = p.MatchUserAgent(pixelUA)
	assert.ErrorIs(t, err, dataset.ErrClosed)

	_, err = m.Values(datasettest.PropertyHardwareModel)
	assert.ErrorIs(t, err, dataset.ErrClosed)

	_, err = m.ValueString(datasettest.PropertyHardwareModel)
	assert.ErrorIs(t, err, dataset.ErrClosed)

	_, err = m.Profiles()
	assert.ErrorIs(t, err, dataset.ErrClosed)
}
