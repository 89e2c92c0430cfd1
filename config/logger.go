package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// InitLogger configures the shared structured logger.
func InitLogger() *logrus.Logger {
	Log = logrus.New()

	// JSON output so log aggregators can index the pipeline fields.
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)
	Log.SetLevel(logrus.InfoLevel)

	return Log
}
