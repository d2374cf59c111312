package kfpdeploy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

type ActionsFormatter struct{}

func SetupLogging(cfg Config) error {
	return setupLogging(log.StandardLogger(), os.Stderr, cfg)
}

func setupLogging(logger *log.Logger, out io.Writer, cfg Config) error {
	logger.SetOutput(out)

	if cfg.Actions {
		logger.SetFormatter(&ActionsFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:          true,
			TimestampFormat:        time.RFC3339Nano,
			DisableLevelTruncation: true,
		})
	}

	level := log.InfoLevel
	if len(cfg.LogLevel) > 0 {
		var err error
		level, err = log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("while setting log level: %w", err)
		}
	}

	if cfg.Quiet {
		level = log.ErrorLevel
	}

	logger.SetLevel(level)

	return nil
}

func (a *ActionsFormatter) Format(e *log.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch e.Level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		buf.WriteString("::error::")
	case log.WarnLevel:
		buf.WriteString("::warning::")
	case log.DebugLevel, log.TraceLevel:
		buf.WriteString("::debug::")
	default:
		buf.WriteString("[")
		buf.WriteString(e.Time.Format(time.RFC3339Nano))
		buf.WriteString("] ")
	}
	buf.WriteString(e.Message)
	buf.WriteRune('\n')
	return buf.Bytes(), nil
}
