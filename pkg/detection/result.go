package detection

// Result is the outcome of matching one header value. It only holds offsets,
// so it can be cached outside the process for the dataset it came from.
type Result struct {
	Signature  int32   `json:"signature"`
	Method     Method  `json:"method"`
	Difference int     `json:"difference"`
	Profiles   []int32 `json:"profiles,omitempty"`
}

// noResult is the Result of a value no strategy matched.
var noResult = Result{Signature: -1, Method: MethodNone}

// Found reports whether a signature was matched.
func (r Result) Found() bool { return r.Signature >= 0 }
