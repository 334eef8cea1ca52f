//go:build !noharrierdiag

package harrier

import "go.uber.org/zap"

// resolveLogger returns the logger a Pool should write diagnostics to.
// This is the default build: a caller-supplied Config.Logger is honored,
// falling back to a no-op logger when none was given.
//
// Building with -tags noharrierdiag swaps in diagnostics_disabled.go,
// which ignores Config.Logger entirely and compiles out diagnostic
// logging altogether.
func resolveLogger(cfg Config) *zap.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return zap.NewNop()
}
