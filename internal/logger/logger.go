package logger

import "go.uber.org/zap"

// New builds the process-wide zap logger. Dev mode switches to the
// human-readable console encoder with debug level enabled.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}
