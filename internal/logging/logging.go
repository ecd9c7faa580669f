package logging

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// LogFilePath builds the per-session log file path.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// GraylogSink opens a GELF UDP writer for the given address.
func GraylogSink(address string) (Sink, *gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return Sink{}, nil, fmt.Errorf("creating gelf writer for %s: %w", address, err)
	}
	return Sink{Name: "graylog", Writer: w}, w, nil
}
