// Package handler adapts typed request handlers to net/http for the
// detection API.
//
// A HandlerFunc receives a Context and a request struct filled by binders,
// and returns a Response. Context exposes the device match stored by
// detection.Middleware, so handlers can describe the calling device without
// matching again:
//
//	func whoami(ctx handler.Context, _ struct{}) handler.Response {
//		m := ctx.Match()
//		if m == nil {
//			return handler.JSONError(handler.ErrServiceUnavailable)
//		}
//		model, err := m.ValueString("HardwareModel")
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(map[string]string{"model": model})
//	}
//
//	r.Get("/whoami", handler.Wrap(whoami))
//
// Errors from binders or rendering go to an ErrorHandler. NewErrorHandler
// maps binder, dataset and detection errors to HTTP statuses and logs them.
// Every body uses the JSONResponse envelope.
package handler
