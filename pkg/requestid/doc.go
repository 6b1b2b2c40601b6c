// Package requestid tags every HTTP request with an X-Request-ID so log
// lines from the detection service can be correlated with callers.
package requestid
