package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// New builds the service logger: JSON lines at the requested level, written to
// stdout or, when file is set, to a daily rotated file kept for a week.
func New(level, file string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	out, err := Output(file)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	return logger, nil
}

// Output opens the log destination.
func Output(file string) (io.Writer, error) {
	if file == "" {
		return os.Stdout, nil
	}
	writer, err := rotatelogs.New(
		file+".%Y%m%d",
		rotatelogs.WithLinkName(file),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("create rotating log %s: %w", file, err)
	}
	return writer, nil
}
