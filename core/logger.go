package core

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

const (
	callerField = "caller"

	traceSpanIdWidth = 16
	fnWidth          = 30
	levelWidth       = 5
)

var (
	logger = logrus.New()

	logBufPool = sync.Pool{
		New: func() any {
			return &bytes.Buffer{}
		},
	}
)

func init() {
	logger.SetReportCaller(false) // set manually using Rail
	logger.SetFormatter(CustomFormatter())
}

// Fixed-width formatter: time, level, [trace,span], caller and message.
type CTFormatter struct {
}

func (c *CTFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var fn, traceId, spanId string
	if v, ok := entry.Data[callerField].(string); ok {
		fn = v
	}
	if v, ok := entry.Data[XTraceId].(string); ok {
		traceId = v
	}
	if v, ok := entry.Data[XSpanId].(string); ok {
		spanId = v
	}
	levelstr := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		levelstr = "WARN"
	}

	b := logBufPool.Get().(*bytes.Buffer)
	defer putLogBuf(b)

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05.000"))
	b.WriteByte(' ')
	writePadded(b, levelstr, levelWidth)
	b.WriteString(" [")
	writePadded(b, traceId, traceSpanIdWidth)
	b.WriteByte(',')
	writePadded(b, spanId, traceSpanIdWidth)
	b.WriteString("] ")
	writePadded(b, fn, fnWidth)
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	b.WriteByte('\n')

	// the buffer is reused, the returned bytes must be copied
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	return out, nil
}

func writePadded(b *bytes.Buffer, s string, width int) {
	b.WriteString(s)
	if len(s) < width {
		b.WriteString(strings.Repeat(" ", width-len(s)))
	}
}

func putLogBuf(b *bytes.Buffer) {
	b.Reset()
	logBufPool.Put(b)
}

// Get custom formatter logrus
func CustomFormatter() logrus.Formatter {
	return &CTFormatter{}
}

// Get the underlying logger.
func Logger() *logrus.Logger {
	return logger
}

// Set log level, e.g., 'debug', 'info', 'warn'. Unknown level is ignored.
func SetLogLevel(level string) {
	ll, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	logger.SetLevel(ll)
}

func IsDebugLevel() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}

type RollingLogFileParam struct {
	Filename   string // filename
	MaxSize    int    // max file size in mb
	MaxAge     int    // max age in day
	MaxBackups int    // max number of files
}

// Create rolling file based logger
func BuildRollingLogFileWriter(p RollingLogFileParam) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   p.Filename,
		MaxSize:    p.MaxSize,    // megabytes
		MaxAge:     p.MaxAge,     // days
		MaxBackups: p.MaxBackups, // num of files
		LocalTime:  true,
		Compress:   false,
	}
}

// Configure logger using the loaded props.
//
// Returns a closer for the rolling log file, which is nil if rolling log file is not configured.
func ConfigureLogging(rail Rail) io.Closer {
	SetLogLevel(GetPropStr(PropLoggingLevel))

	file := GetPropStr(PropLoggingRollingFile)
	if file == "" {
		return nil
	}
	w := BuildRollingLogFileWriter(RollingLogFileParam{
		Filename:   file,
		MaxSize:    GetPropInt(PropLoggingRollingMaxSize),
		MaxAge:     GetPropInt(PropLoggingRollingMaxAge),
		MaxBackups: GetPropInt(PropLoggingRollingMaxBackups),
	})
	if GetPropBool(PropLoggingRollingConsoleCopy) {
		logger.SetOutput(io.MultiWriter(os.Stdout, w))
	} else {
		logger.SetOutput(w)
	}
	rail.Infof("Writing logs to rolling file: %v", file)
	return w
}

func getCallerFn() string {
	pcs := make([]uintptr, 1)
	depth := runtime.Callers(4, pcs)
	if depth < 1 {
		return ""
	}
	f, _ := runtime.CallersFrames(pcs[:depth]).Next()
	return getShortFnName(f.Function)
}

func getShortFnName(fn string) string {
	j := strings.LastIndex(fn, "/")
	if j < 0 {
		return fn
	}
	return fn[j+1:]
}
