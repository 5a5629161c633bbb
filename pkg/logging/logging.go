// Package logging sets up logrus process-wide the way pkg/utils/log.go
// does for the teacher: a flag-registered level and destination, a
// prefixed timestamped formatter, a filename-of-caller hook, and a
// goroutine-local "table" field hook so concurrent table-sync workers'
// log lines stay attributable without a logger passed through every
// call.
package logging

import (
	"flag"
	"fmt"
	"io"
	"os"

	filename "github.com/keepeye/logrus-filename"
	"github.com/sirupsen/logrus"
	prefixed "github.com/t-tomalak/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logLevel        string
	logFilename     string
	logAlsoToStderr bool
)

func init() {
	flag.StringVar(&logLevel, "log_level", "info", "log level")
	flag.StringVar(&logFilename, "log_filename", "", "log filename")
	flag.BoolVar(&logAlsoToStderr, "log_also_to_stderr", false, "log also to stderr")
}

// Init configures the standard logger from the registered flags. Call it
// once, after flag.Parse, before any table-sync work starts.
func Init() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		fmt.Printf("parse log level %v failed: %v\n", logLevel, err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		ForceFormatting: true,
	})

	logrus.AddHook(NewHook())

	filenameHook := filename.NewHook()
	filenameHook.Field = "line"
	logrus.AddHook(filenameHook)

	if logFilename == "" {
		logrus.SetOutput(os.Stdout)
		return
	}

	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    1024, // 1GB
		MaxAge:     7,
		MaxBackups: 30,
		LocalTime:  true,
		Compress:   false,
	}
	if logAlsoToStderr {
		logrus.SetOutput(io.MultiWriter(output, os.Stderr))
	} else {
		logrus.SetOutput(output)
	}
}
