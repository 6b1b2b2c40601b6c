// Package detection matches HTTP header values against a device dataset.
//
// A Provider is bound to one dataset and is safe for concurrent use. Each
// call fills a Match, which records the matched signature, the method that
// found it, a difference score and one profile per component:
//
//	p, err := detection.NewProvider(ds)
//	m, err := p.MatchUserAgent(r.UserAgent())
//	model, err := m.ValueString("HardwareModel")
//
// # Strategies
//
// Matching collects every dataset node found in the value and then tries,
// in order, the enabled strategies:
//
//   - EXACT: a signature whose nodes were all found. Difference 0.
//   - NUMERIC: unknown numbers are replaced by the nearest number of the
//     same width the dataset knows at that point. Difference is the sum of
//     the replacements.
//   - NEAREST: a signature whose missing nodes occur elsewhere in the value.
//     Difference is the sum of the position shifts.
//   - CLOSEST: the signature whose missing nodes differ least, character by
//     character, from the value. Ties go to the higher rank, then the lower
//     offset.
//
// WithMethods and WithExactOnly restrict the strategies. A value no strategy
// matches leaves the Match in StateNoMatch; that is not an error.
//
// # Several headers
//
// Every header the dataset lists is matched on its own and cached per value.
// Components take their profile from the first header, in dataset order,
// that identifies them and produced a signature.
//
// # HTTP
//
// Middleware stores the Match of every request in its context, where
// GetMatchFromContext finds it.
package detection
