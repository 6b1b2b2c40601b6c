package detection

import (
	"maps"
	"strings"
	"time"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
)

// ValueSeparator joins the values of list properties in ValueString.
const ValueSeparator = "|"

// Match is the result of matching one set of header values. A Match is
// filled by one matching call at a time and must not be shared between
// concurrent calls.
type Match struct {
	ds         *dataset.Dataset
	state      State
	method     Method
	difference int
	signature  *dataset.Signature
	profiles   []*dataset.Profile
	results    map[string]Result
	elapsed    time.Duration
}

func (m *Match) reset(ds *dataset.Dataset) {
	m.ds = ds
	m.state = StateInitial
	m.method = MethodNone
	m.difference = 0
	m.signature = nil
	m.profiles = m.profiles[:0]
	m.results = make(map[string]Result)
	m.elapsed = 0
}

func (m *Match) State() State { return m.state }

// Method returns the weakest method used, or MethodNone.
func (m *Match) Method() Method { return m.method }

// Difference returns how far the input is from the matched signatures. It is
// zero for exact matches.
func (m *Match) Difference() int { return m.difference }

// Signature returns the matched signature. It is nil when nothing matched or
// when the result was combined from several headers.
func (m *Match) Signature() *dataset.Signature { return m.signature }

// Elapsed returns the time spent matching.
func (m *Match) Elapsed() time.Duration { return m.elapsed }

// Results returns the per-header results keyed by dataset header name.
func (m *Match) Results() map[string]Result { return maps.Clone(m.results) }

// Profiles returns one profile per component, ordered by component. It is
// empty when nothing matched.
func (m *Match) Profiles() ([]*dataset.Profile, error) {
	if m.ds == nil {
		return nil, ErrNilMatch
	}
	if m.ds.Closed() {
		return nil, dataset.ErrClosed
	}
	return m.profiles, nil
}

// Values returns the values of the named property. Properties the matched
// profile does not set fall back to the property default. It returns nil
// without an error when nothing matched.
func (m *Match) Values(property string) ([]*dataset.Value, error) {
	if m.ds == nil {
		return nil, ErrNilMatch
	}
	prop, err := m.ds.PropertyByName(property)
	if err != nil {
		return nil, err
	}
	if m.state != StateResultFound {
		return nil, nil
	}

	for _, p := range m.profiles {
		if p.Component() != prop.Component() {
			continue
		}
		values, err := p.ValuesFor(prop)
		if err != nil || len(values) > 0 {
			return values, err
		}
		break
	}

	def, err := prop.DefaultValue()
	if err != nil || def == nil {
		return nil, err
	}
	return []*dataset.Value{def}, nil
}

// ValueString returns the values of the named property joined with
// ValueSeparator.
func (m *Match) ValueString(property string) (string, error) {
	values, err := m.Values(property)
	if err != nil {
		return "", err
	}
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.Name()
	}
	return strings.Join(names, ValueSeparator), nil
}
