package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure sets up logger at level, writing to stderr and, when file is
// set, to a rotating log file as well. The returned closer releases the file.
func Configure(logger *logrus.Logger, level, file string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if file == "" {
		logger.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
