package db

import "go.uber.org/zap"

// Options configure a DB handle.
type Options struct {
	Logger    *zap.Logger
	Compress  bool   // snappy-compress value records
	SessionID string // generated when empty
}

type Option func(*Options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithCompression enables snappy compression of value records. A file
// must always be opened with the same setting.
func WithCompression(on bool) Option {
	return func(o *Options) {
		o.Compress = on
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(o *Options) {
		o.SessionID = id
	}
}
