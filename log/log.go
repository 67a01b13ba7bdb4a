package log

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	level = INFO

	logger = log.New()
)

func init() {
	logger.SetOutput(os.Stdout)
	logger.SetLevel(log.DebugLevel)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.999999999Z07:00",
	})
}

func Infoln(format string, v ...any) {
	event := newLog(INFO, format, v...)
	print(event)
}

func Warnln(format string, v ...any) {
	event := newLog(WARNING, format, v...)
	print(event)
}

func Errorln(format string, v ...any) {
	event := newLog(ERROR, format, v...)
	print(event)
}

func Debugln(format string, v ...any) {
	event := newLog(DEBUG, format, v...)
	print(event)
}

func Fatalln(format string, v ...any) {
	logger.Fatalf(format, v...)
}

func SetLevel(newLevel LogLevel) {
	level = newLevel
}

func Level() LogLevel {
	return level
}

func print(data Event) {
	if data.LogLevel < level {
		return
	}

	switch data.LogLevel {
	case INFO:
		logger.Infoln(data.Payload)
	case WARNING:
		logger.Warnln(data.Payload)
	case ERROR:
		logger.Errorln(data.Payload)
	case DEBUG:
		logger.Debugln(data.Payload)
	}
}

type Event struct {
	LogLevel LogLevel
	Payload  string
}

func (e *Event) Type() string {
	return e.LogLevel.String()
}

func newLog(logLevel LogLevel, format string, v ...any) Event {
	return Event{
		LogLevel: logLevel,
		Payload:  fmt.Sprintf(format, v...),
	}
}
