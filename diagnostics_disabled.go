//go:build noharrierdiag

package harrier

import "go.uber.org/zap"

// resolveLogger always returns a no-op logger under this build tag,
// regardless of what the caller passed as Config.Logger, so diagnostic
// logging compiles out entirely.
func resolveLogger(cfg Config) *zap.Logger {
	return zap.NewNop()
}
