// Package logging wires the standard logger to a rotating file writer.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/high-horse/afis-search/internal/config"
)

// Setup points the standard logger at stdout, plus a rotating log file when
// a directory is configured. The returned writer is shared with the HTTP
// request logger; close releases the rotation handle.
func Setup(cfg config.Log) (io.Writer, func() error, error) {
	if cfg.Dir == "" {
		log.SetOutput(os.Stdout)
		return os.Stdout, func() error { return nil }, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	rl, err := rotatelogs.New(
		filepath.Join(cfg.Dir, "afis-search.%Y%m%d%H%M.log"),
		rotatelogs.WithRotationTime(time.Duration(cfg.RotateHours)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(cfg.MaxAgeDays)*24*time.Hour),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening rotating log: %w", err)
	}

	w := io.MultiWriter(os.Stdout, rl)
	log.SetOutput(w)
	return w, rl.Close, nil
}
