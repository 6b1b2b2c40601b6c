// Package datasettest provides a small device dataset for tests.
package datasettest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

// Headers in precedence order.
const (
	HeaderOperaMini   = "X-Operamini-Phone-UA"
	HeaderDeviceStock = "Device-Stock-UA"
	HeaderUserAgent   = "User-Agent"
)

// Property names.
const (
	PropertyIsMobile        = "IsMobile"
	PropertyHardwareModel   = "HardwareModel"
	PropertyPlatformName    = "PlatformName"
	PropertyPlatformVersion = "PlatformVersion"
	PropertyBrowserName     = "BrowserName"
	PropertyBrowserVersion  = "BrowserVersion"
)

// Profile IDs.
const (
	ProfileHardwareUnknown int32 = 1000
	ProfilePixel5          int32 = 1001
	ProfileDesktop         int32 = 1002
	ProfileIPhone          int32 = 1003

	ProfilePlatformUnknown int32 = 2000
	ProfileAndroid11       int32 = 2001
	ProfileWindows10       int32 = 2002
	ProfileIOS14           int32 = 2003

	ProfileBrowserUnknown int32 = 3000
	ProfileChrome45       int32 = 3001
	ProfileChrome91       int32 = 3002
	ProfileSafari14       int32 = 3003
	ProfileOperaMini50    int32 = 3004
)

// Signature fragments. Each signature is its fragments laid end to end.
var (
	PixelChrome   = []string{"Mozilla/5.0 (", "Linux; Android 11; Pixel 5) ", "Chrome/", "45.0 Mobile Safari/537.36"}
	WindowsChrome = []string{"Mozilla/5.0 (", "Windows NT 10.0; Win64; x64) ", "Chrome/", "91.0 Safari/537.36"}
	IPhoneSafari  = []string{"Mozilla/5.0 (", "iPhone; CPU iPhone OS 14_0 like Mac OS X) ", "Version/14.0 ", "Mobile Safari/604.1"}
	OperaMini     = []string{"Opera/9.80 (", "J2ME/MIDP; Opera Mini/", "50.0", "; U; en) Presto/2.12"}
)

// Ranks of the signatures, in the order they are written.
const (
	RankPixelChrome   int32 = 300
	RankWindowsChrome int32 = 500
	RankIPhoneSafari  int32 = 400
	RankOperaMini     int32 = 100
)

// Join concatenates signature fragments into the header value they form.
func Join(parts []string) string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n)
	for _, p := range parts {
		b = append(b, p...)
	}
	return string(b)
}

func profile(component string, id int32, values map[string]string) dataset.ProfileDef {
	out := make(map[string][]string, len(values))
	for k, v := range values {
		out[k] = []string{v}
	}
	return dataset.ProfileDef{Component: component, ID: id, Values: out}
}

// Writer returns the writer for the device dataset: three components, three
// headers and four signatures.
func Writer() *dataset.Writer {
	return &dataset.Writer{
		Headers: []string{HeaderOperaMini, HeaderDeviceStock, HeaderUserAgent},
		Components: []dataset.ComponentDef{
			{
				Name:           "HardwarePlatform",
				Headers:        []string{HeaderOperaMini, HeaderDeviceStock, HeaderUserAgent},
				DefaultProfile: ProfileHardwareUnknown,
				Properties: []dataset.PropertyDef{
					{Name: PropertyIsMobile, Type: dataset.ValueTypeBool, Default: "False"},
					{Name: PropertyHardwareModel, Type: dataset.ValueTypeString, Default: "Unknown"},
				},
			},
			{
				Name:           "SoftwarePlatform",
				Headers:        []string{HeaderOperaMini, HeaderDeviceStock, HeaderUserAgent},
				DefaultProfile: ProfilePlatformUnknown,
				Properties: []dataset.PropertyDef{
					{Name: PropertyPlatformName, Type: dataset.ValueTypeString, Default: "Unknown"},
					{Name: PropertyPlatformVersion, Type: dataset.ValueTypeFloat},
				},
			},
			{
				Name:           "BrowserUA",
				Headers:        []string{HeaderUserAgent},
				DefaultProfile: ProfileBrowserUnknown,
				Properties: []dataset.PropertyDef{
					{Name: PropertyBrowserName, Type: dataset.ValueTypeString, Default: "Unknown"},
					{Name: PropertyBrowserVersion, Type: dataset.ValueTypeFloat, List: true},
				},
			},
		},
		Profiles: []dataset.ProfileDef{
			profile("HardwarePlatform", ProfileHardwareUnknown, map[string]string{PropertyIsMobile: "False", PropertyHardwareModel: "Unknown"}),
			profile("HardwarePlatform", ProfilePixel5, map[string]string{PropertyIsMobile: "True", PropertyHardwareModel: "Pixel 5"}),
			profile("HardwarePlatform", ProfileDesktop, map[string]string{PropertyIsMobile: "False", PropertyHardwareModel: "Desktop"}),
			profile("HardwarePlatform", ProfileIPhone, map[string]string{PropertyIsMobile: "True", PropertyHardwareModel: "iPhone"}),

			profile("SoftwarePlatform", ProfilePlatformUnknown, map[string]string{PropertyPlatformName: "Unknown"}),
			profile("SoftwarePlatform", ProfileAndroid11, map[string]string{PropertyPlatformName: "Android", PropertyPlatformVersion: "11"}),
			profile("SoftwarePlatform", ProfileWindows10, map[string]string{PropertyPlatformName: "Windows", PropertyPlatformVersion: "10"}),
			profile("SoftwarePlatform", ProfileIOS14, map[string]string{PropertyPlatformName: "iOS", PropertyPlatformVersion: "14.0"}),

			profile("BrowserUA", ProfileBrowserUnknown, map[string]string{PropertyBrowserName: "Unknown"}),
			profile("BrowserUA", ProfileChrome45, map[string]string{PropertyBrowserName: "Chrome", PropertyBrowserVersion: "45"}),
			profile("BrowserUA", ProfileChrome91, map[string]string{PropertyBrowserName: "Chrome", PropertyBrowserVersion: "91"}),
			profile("BrowserUA", ProfileSafari14, map[string]string{PropertyBrowserName: "Mobile Safari", PropertyBrowserVersion: "14.0"}),
			{
				Component: "BrowserUA",
				ID:        ProfileOperaMini50,
				Values: map[string][]string{
					PropertyBrowserName:    {"Opera Mini"},
					PropertyBrowserVersion: {"50", "50.0"},
				},
			},
		},
		Signatures: []dataset.SignatureDef{
			{Rank: RankPixelChrome, Profiles: []int32{ProfilePixel5, ProfileAndroid11, ProfileChrome45}, Nodes: dataset.Fragments(PixelChrome...)},
			{Rank: RankWindowsChrome, Profiles: []int32{ProfileDesktop, ProfileWindows10, ProfileChrome91}, Nodes: dataset.Fragments(WindowsChrome...)},
			{Rank: RankIPhoneSafari, Profiles: []int32{ProfileIPhone, ProfileIOS14, ProfileSafari14}, Nodes: dataset.Fragments(IPhoneSafari...)},
			{Rank: RankOperaMini, Profiles: []int32{ProfileOperaMini50}, Nodes: dataset.Fragments(OperaMini...)},
		},
	}
}

// DeterminismWriter returns a dataset with two signatures that are equally
// distant from "abcxyy": "abc"+"xyz" written first and "abc"+"xyx" second.
func DeterminismWriter(rankXYZ, rankXYX int32) *dataset.Writer {
	return &dataset.Writer{
		Headers: []string{HeaderUserAgent},
		Components: []dataset.ComponentDef{{
			Name:    "HardwarePlatform",
			Headers: []string{HeaderUserAgent},
			Properties: []dataset.PropertyDef{
				{Name: PropertyHardwareModel, Type: dataset.ValueTypeString},
			},
		}},
		Profiles: []dataset.ProfileDef{
			profile("HardwarePlatform", 1, map[string]string{PropertyHardwareModel: "xyz"}),
			profile("HardwarePlatform", 2, map[string]string{PropertyHardwareModel: "xyx"}),
		},
		Signatures: []dataset.SignatureDef{
			{Rank: rankXYZ, Profiles: []int32{1}, Nodes: dataset.Fragments("abc", "xyz")},
			{Rank: rankXYX, Profiles: []int32{2}, Nodes: dataset.Fragments("abc", "xyx")},
		},
	}
}

// Bytes builds the blob of w.
func Bytes(t testing.TB, w *dataset.Writer) []byte {
	t.Helper()
	data, err := w.Bytes()
	require.NoError(t, err)
	return data
}

// Open opens the device dataset in memory and closes it when the test ends.
func Open(t testing.TB, opts ...dataset.Option) *dataset.Dataset {
	t.Helper()
	return OpenWriter(t, Writer(), opts...)
}

// OpenWriter opens the blob of w in memory and closes it when the test ends.
func OpenWriter(t testing.TB, w *dataset.Writer, opts ...dataset.Option) *dataset.Dataset {
	t.Helper()
	opts = append([]dataset.Option{dataset.WithLogger(logger.Discard())}, opts...)
	ds, err := dataset.OpenBytes(Bytes(t, w), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// WriteFile writes the device dataset into a temporary directory and returns
// its path.
func WriteFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.dat")
	require.NoError(t, Writer().WriteFile(path))
	return path
}

// OpenFile opens the device dataset from a file through pooled cursors and
// closes it when the test ends.
func OpenFile(t testing.TB, opts ...dataset.Option) *dataset.Dataset {
	t.Helper()
	opts = append([]dataset.Option{dataset.WithLogger(logger.Discard())}, opts...)
	ds, err := dataset.OpenFile(WriteFile(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}
