// Package devicedetect identifies devices, platforms and browsers from HTTP
// request headers using a binary device dataset.
//
// The building blocks live under pkg/: source reads the dataset file through
// pooled cursors, dataset decodes and caches its entities, detection matches
// header values against signatures with the Exact, Numeric, Nearest and
// Closest strategies, and cache provides the LRU, Noop and Redis caches they
// share. Detector wires them together from a Config:
//
//	d, err := devicedetect.OpenFromEnv(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close()
//
//	m, err := d.DetectUserAgent(r.UserAgent())
//	if err != nil {
//		return err
//	}
//	model, _ := m.ValueString("HardwareModel")
//
// Detector.Handler exposes the same operations as a JSON HTTP API, and
// Detector.Middleware stores the match of every request in its context for
// applications that embed detection in their own router.
package devicedetect
