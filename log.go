package das

import "go.uber.org/zap"

var log = zap.NewNop()

// SetLogger sets the logger that receives diagnostics for every failed
// construction, lookup and subset. Passing nil restores the no-op logger.
// Not safe to call while variables are in use on other goroutines.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

func logger() *zap.Logger {
	return log
}
