package node

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
)

// logName is the base log file name, the way the teacher fixes logName for
// every blockchain instance's log.
const logName = "lotus-musigd"

// logsDir is where per-instance rotated log files are written.
const logsDir = "logs"

// SetLog configures logrus exactly the way the teacher's utils.go SetLog
// does: a rotating JSON file hook plus a colorable, human-readable stdout
// formatter, namespaced by instanceId so multiple nodes on one machine
// don't share a log file.
func SetLog(instanceId string) error {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return err
	}

	logLevel := logrus.InfoLevel
	filename := filepath.Join(logsDir, fmt.Sprintf("%s.log", logName))
	if instanceId != "" {
		filename = filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", logName, instanceId))
	}

	rotateFileHook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   filename,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
		Level:      logLevel,
		Formatter: &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		},
	})
	if err != nil {
		return err
	}

	logrus.SetLevel(logLevel)
	logrus.SetOutput(colorable.NewColorableStdout())
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC822,
	})
	logrus.AddHook(rotateFileHook)
	return nil
}
