package persistence

import (
	"bufio"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CursorFile keeps a stream cursor (the last consumed entry ID) on disk so a
// consumer can resume where it stopped
type CursorFile struct {
	filename string
	logger   *zap.Logger
}

func NewCursorFile(filename string, logger *zap.Logger) *CursorFile {
	return &CursorFile{
		filename: filename,
		logger:   logger,
	}
}

// Save performs an atomic save operation. A failed save leaves the previous
// cursor file untouched and no temporary file behind
func (c *CursorFile) Save(id string) (err error) {
	start := time.Now()
	tmpFile := c.filename + ".tmp"

	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	defer func() {
		f.Close() //nolint:errcheck
		if err != nil {
			os.Remove(tmpFile) //nolint:errcheck
		}
	}()
	writer := bufio.NewWriter(f)

	if _, err := writer.WriteString(id + "\n"); err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpFile, c.filename); err != nil {
		return err
	}

	c.logger.Debug("stream cursor saved",
		zap.String("file", c.filename),
		zap.String("id", id),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Load returns the saved cursor, or "" when nothing was saved yet
func (c *CursorFile) Load() (string, error) {
	data, err := os.ReadFile(c.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	id := strings.TrimSpace(string(data))
	if id != "" {
		c.logger.Info("stream cursor loaded", zap.String("file", c.filename), zap.String("id", id))
	}
	return id, nil
}
