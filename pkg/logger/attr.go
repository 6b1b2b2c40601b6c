package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Dataset records the identifier of an opened dataset under the key "dataset".
func Dataset(id string) slog.Attr {
	return slog.String("dataset", id)
}

// Collection records an entity collection name under the key "collection".
func Collection(name string) slog.Attr {
	return slog.String("collection", name)
}

// Offset records an entity offset or index under the key "offset".
func Offset(off int32) slog.Attr {
	return slog.Int64("offset", int64(off))
}

// Method records a matching method under the key "method".
func Method(name string) slog.Attr {
	return slog.String("method", name)
}

// Difference records a match difference score under the key "difference".
func Difference(d int) slog.Attr {
	return slog.Int("difference", d)
}

// Header records an HTTP header name under the key "header".
func Header(name string) slog.Attr {
	return slog.String("header", name)
}

// Path records a file path under the key "path".
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}
