package core

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	XTraceId = "x-trace-id"
	XSpanId  = "x-span-id"
)

var propagationKeys = []string{XTraceId}

// Rail, an object that carries trace infromation along with the execution.
type Rail struct {
	ctx context.Context
}

// Create new Rail from context.
func NewRail(ctx context.Context) Rail {
	if ctx.Value(XSpanId) == nil {
		ctx = context.WithValue(ctx, XSpanId, NewSpanId()) //lint:ignore SA1029 keys must be exposed for user to use
	}
	if ctx.Value(XTraceId) == nil {
		ctx = context.WithValue(ctx, XTraceId, NewTraceId()) //lint:ignore SA1029 keys must be exposed for user to use
	}
	return Rail{ctx: ctx}
}

// Create empty Rail.
func EmptyRail() Rail {
	return NewRail(context.Background())
}

// Create new TraceId.
func NewTraceId() string {
	t := [8]byte{}
	binary.NativeEndian.PutUint64(t[:], rand.Uint64())
	return hex.EncodeToString(t[:])
}

// Create new SpanId.
func NewSpanId() string {
	s := [8]byte{}
	binary.NativeEndian.PutUint64(s[:], rand.Uint64())
	return hex.EncodeToString(s[:])
}

// Iterate keys that are propagated across process boundary (e.g., as message headers).
func UsePropagationKeys(f func(key string)) {
	for _, k := range propagationKeys {
		f(k)
	}
}

func (r Rail) Context() context.Context {
	return r.ctx
}

func (r Rail) Done() <-chan struct{} {
	return r.ctx.Done()
}

func (r Rail) IsDone() bool {
	return r.ctx.Err() != nil
}

func (r Rail) CtxValue(key string) any {
	return r.ctx.Value(key)
}

func (r Rail) CtxValStr(key string) string {
	if v := r.ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (r Rail) TraceId() string {
	return r.CtxValStr(XTraceId)
}

func (r Rail) SpanId() string {
	return r.CtxValStr(XSpanId)
}

func (r Rail) WithCtxVal(key string, val any) Rail {
	return NewRail(context.WithValue(r.ctx, key, val)) //lint:ignore SA1029 keys must be exposed for user to use
}

// Create a new Rail with a new SpanId and a new Context.
//
// The previous context is not inherited, values of propagation keys are copied.
func (r Rail) NextSpan() Rail {
	ctx := context.Background()
	for _, k := range propagationKeys {
		if v := r.ctx.Value(k); v != nil {
			ctx = context.WithValue(ctx, k, v) //lint:ignore SA1029 keys must be exposed for user to use
		}
	}
	return NewRail(context.WithValue(ctx, XSpanId, NewSpanId())) //lint:ignore SA1029 keys must be exposed for user to use
}

// Create new Rail with context's CancelFunc
func (r Rail) WithCancel() (Rail, context.CancelFunc) {
	cc, cancel := context.WithCancel(r.ctx)
	return NewRail(cc), cancel
}

// Create new Rail with timeout and context's CancelFunc
func (r Rail) WithTimeout(timeout time.Duration) (Rail, context.CancelFunc) {
	cc, cancel := context.WithTimeout(r.ctx, timeout)
	return NewRail(cc), cancel
}

func (r Rail) entry() *logrus.Entry {
	return logger.WithFields(logrus.Fields{XSpanId: r.ctx.Value(XSpanId), XTraceId: r.ctx.Value(XTraceId), callerField: getCallerFn()})
}

func (r Rail) Debugf(format string, args ...any) {
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	r.entry().Debugf(format, args...)
}

func (r Rail) Infof(format string, args ...any) {
	if !logger.IsLevelEnabled(logrus.InfoLevel) {
		return
	}
	r.entry().Infof(format, args...)
}

func (r Rail) Warnf(format string, args ...any) {
	if !logger.IsLevelEnabled(logrus.WarnLevel) {
		return
	}
	r.entry().Warnf(format, args...)
}

func (r Rail) Errorf(format string, args ...any) {
	if !logger.IsLevelEnabled(logrus.ErrorLevel) {
		return
	}
	r.entry().Errorf(format, args...)
}

func (r Rail) Debug(msg string) {
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	r.entry().Debug(msg)
}

func (r Rail) Info(msg string) {
	if !logger.IsLevelEnabled(logrus.InfoLevel) {
		return
	}
	r.entry().Info(msg)
}

func (r Rail) Warn(msg string) {
	if !logger.IsLevelEnabled(logrus.WarnLevel) {
		return
	}
	r.entry().Warn(msg)
}

func (r Rail) Error(msg string) {
	if !logger.IsLevelEnabled(logrus.ErrorLevel) {
		return
	}
	r.entry().Error(msg)
}

// Log err at WARN level if it's not nil.
func (r Rail) WarnIf(err error, op string, args ...any) {
	if err != nil {
		r.entry().Warnf("%v, %v", fmt.Sprintf(op, args...), err)
	}
}
