package detection

import (
	"fmt"
	"strings"
)

// Method is the strategy that produced a result. Methods are ordered from
// strongest to weakest.
type Method int

const (
	MethodNone Method = iota
	MethodExact
	MethodNumeric
	MethodNearest
	MethodClosest
)

// Methods lists every strategy in the order they are attempted.
var Methods = []Method{MethodExact, MethodNumeric, MethodNearest, MethodClosest}

var methodNames = map[Method]string{
	MethodNone:    "NONE",
	MethodExact:   "EXACT",
	MethodNumeric: "NUMERIC",
	MethodNearest: "NEAREST",
	MethodClosest: "CLOSEST",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a method name, in any case, to a Method.
func ParseMethod(s string) (Method, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return MethodNone, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

func (m Method) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	v, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// State is the progress of one matching attempt.
type State int

const (
	StateInitial State = iota
	StateClosestNodesCollected
	StateMethodAttempted
	StateResultFound
	StateNoMatch
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateClosestNodesCollected:
		return "CLOSEST_NODES_COLLECTED"
	case StateMethodAttempted:
		return "METHOD_ATTEMPTED"
	case StateResultFound:
		return "RESULT_FOUND"
	case StateNoMatch:
		return "NO_MATCH"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool { return s == StateResultFound || s == StateNoMatch }
