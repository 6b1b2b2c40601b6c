// Package clientip resolves the address of the client that sent an HTTP
// request, optionally trusting headers set by reverse proxies.
//
// Use Middleware to resolve the address once per request and FromContext
// to read it downstream:
//
//	r.Use(clientip.Middleware(clientip.ProxyHeaders...))
//
// Without headers only RemoteAddr is used. FromRequest never fails: it
// returns "" when no valid address is found.
package clientip
