package das

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotfound           = errors.New("not found")
	ErrInvalidRank        = errors.New("invalid rank")
	ErrBadIndexMap        = errors.New("invalid index map")
	ErrUnsupported        = errors.New("unsupported configuration")
	ErrDatumOverflow      = errors.New("value too large for a datum")
	ErrInvalidRange       = errors.New("invalid subset range")
	ErrInvalidLocation    = errors.New("invalid location")
	ErrIncompatibleUnits  = errors.New("incompatible units")
	ErrIncompatibleFrames = errors.New("incompatible vector frames")
	ErrNotNumeric         = errors.New("values are not numeric")
	ErrUnknownOp          = errors.New("unknown operator")
	ErrUnbounded          = errors.New("variable has no bounded extent")
	ErrReleased           = errors.New("object already released")
	ErrInternal           = errors.New("internal logic error")
)

// report emits err on the diagnostic channel and hands it back so call sites
// can write `return nil, report(err)`
func report(err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	logger().Warn(err.Error(), append(fields, zap.Error(err))...)
	return err
}

// wrapf wraps a sentinel with context
func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// errorf wraps a sentinel with context and reports it
func errorf(sentinel error, format string, args ...interface{}) error {
	return report(wrapf(sentinel, format, args...))
}
