package subscribers

import (
	"log/slog"

	"github.com/fogfish/opts"
)

type config struct {
	logger   *slog.Logger
	sizeHint uintptr
}

var (
	// WithLogger sets the logger registry mutations are reported to at debug level.
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
	// WithSizeHint pre-sizes the topic index.
	WithSizeHint = opts.ForName[config, uintptr]("sizeHint")
)
