package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used throughout the module.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<parent>.<subname>" sharing the parent's appenders.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	AddAppender(appender Appender)
	// AsZap converts to a zap logger for libraries that expect one.
	AsZap() *zap.SugaredLogger
	Sync() error
}

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs []error
	for _, appender := range imp.appenders {
		if err := appender.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	// Only appenders that are themselves zap cores, such as test observers, carry over.
	var cores []zapcore.Core
	for _, appender := range imp.appenders {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
		}
	}

	config := NewZapLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(imp.level.Get().AsZap())
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, core := range cores {
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

func (imp *impl) shouldLog(level Level) bool {
	return level >= imp.level.Get()
}

func (imp *impl) newEntry(level Level, msg string) zapcore.Entry {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	return entry
}

func (imp *impl) log(entry zapcore.Entry, fields []zapcore.Field) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// fieldsFrom turns alternating keys and values into zap fields. A trailing key without a
// value is logged with an error value rather than dropped.
func fieldsFrom(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		key := fmt.Sprintf("%v", keysAndValues[keyIdx])
		if keyIdx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[keyIdx+1]))
		} else {
			fields = append(fields, zap.String(key, "unpaired log key"))
		}
	}
	return fields
}

func (imp *impl) logArgs(level Level, args ...interface{}) {
	if imp.shouldLog(level) {
		imp.log(imp.newEntry(level, fmt.Sprint(args...)), nil)
	}
}

func (imp *impl) logf(level Level, template string, args ...interface{}) {
	if imp.shouldLog(level) {
		imp.log(imp.newEntry(level, fmt.Sprintf(template, args...)), nil)
	}
}

func (imp *impl) logw(level Level, msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(level) {
		imp.log(imp.newEntry(level, msg), fieldsFrom(keysAndValues))
	}
}

func (imp *impl) Debug(args ...interface{})                  { imp.logArgs(DEBUG, args...) }
func (imp *impl) Debugf(template string, args ...interface{}) { imp.logf(DEBUG, template, args...) }
func (imp *impl) Debugw(msg string, kv ...interface{})        { imp.logw(DEBUG, msg, kv...) }
func (imp *impl) Info(args ...interface{})                   { imp.logArgs(INFO, args...) }
func (imp *impl) Infof(template string, args ...interface{})  { imp.logf(INFO, template, args...) }
func (imp *impl) Infow(msg string, kv ...interface{})         { imp.logw(INFO, msg, kv...) }
func (imp *impl) Warn(args ...interface{})                   { imp.logArgs(WARN, args...) }
func (imp *impl) Warnf(template string, args ...interface{})  { imp.logf(WARN, template, args...) }
func (imp *impl) Warnw(msg string, kv ...interface{})         { imp.logw(WARN, msg, kv...) }
func (imp *impl) Error(args ...interface{})                  { imp.logArgs(ERROR, args...) }
func (imp *impl) Errorf(template string, args ...interface{}) { imp.logf(ERROR, template, args...) }
func (imp *impl) Errorw(msg string, kv ...interface{})        { imp.logw(ERROR, msg, kv...) }

// getCaller reports the file and line of the code that called the public logging method.
func getCaller() zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	const skipToLogCaller = 4
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true
	if runtimeFunc := runtime.FuncForPC(entryCaller.PC); runtimeFunc != nil {
		entryCaller.Function = runtimeFunc.Name()
	}
	return entryCaller
}
