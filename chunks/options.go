package chunks

import "github.com/hoyle1974/chunkfile/telemetry"

type Option func(*options)

type options struct {
	logger telemetry.Logger
}

// WithLogger sets where the writer or reader sends its debug output.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: telemetry.NOPLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
