// Package logging contains the logger setup and helpers shared by the HTTP handlers.
package logging

import (
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// New creates a JSON logger writing to stdout at the given level. Unknown levels fall back
// to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	logger.SetOutput(os.Stdout)
	return logger
}

// Discard creates a logger that drops everything, used by tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func PrintlnInfo(logger logrus.FieldLogger, v ...interface{}) {
	logger.Infoln(v...)
}

func PrintlnWarn(logger logrus.FieldLogger, v ...interface{}) {
	logger.Warnln(v...)
}

func PrintlnError(logger logrus.FieldLogger, v ...interface{}) {
	logger.Errorln(v...)
}

// FromRequest returns an entry carrying the request ID and route of the given request.
func FromRequest(logger logrus.FieldLogger, r *http.Request) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}
