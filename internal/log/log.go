package log

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write JSON lines to stdout.
func initLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

func SetLevel(l Level) {
	lg := initLogger()
	switch l {
	case LevelDebug:
		lg.SetLevel(logrus.DebugLevel)
	case LevelInfo:
		lg.SetLevel(logrus.InfoLevel)
	case LevelError:
		lg.SetLevel(logrus.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	entryWithKVs(kv...).Debug(msg)
}

func Info(msg string, kv ...any) {
	entryWithKVs(kv...).Info(msg)
}

func Error(msg string, err error, kv ...any) {
	entryWithKVs(kv...).WithError(err).Error(msg)
}

// entryWithKVs folds key-value pairs into logrus fields.
// Expects kv as pairs: key, value, key, value, ...
func entryWithKVs(kv ...any) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	// If odd number of args, last one is ignored.
	return initLogger().WithFields(fields)
}
