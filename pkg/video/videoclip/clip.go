package videoclip

import (
	"fmt"
	"path/filepath"
	"time"
)

const DATE_FORMAT = "2006-01-02"
const DATE_AND_TIME_FORMAT = "2006-01-02 15.04.05"

var Timestamp = func() time.Time {
	return time.Now()
}

// Clip names where a finished recording lives on disk.
type Clip interface {
	RootPath() string
	FileName() string
}

func New(ploc, ext string) Clip {
	return &clip{
		timestamp:           Timestamp(),
		rootPersistLocation: ploc,
		ext:                 ext,
	}
}

type clip struct {
	timestamp           time.Time
	rootPersistLocation string
	ext                 string
}

func (c *clip) RootPath() string {
	return filepath.Join(c.rootPersistLocation, c.timestamp.Format(DATE_FORMAT))
}

func (c *clip) FileName() string {
	return filepath.FromSlash(
		fmt.Sprintf(
			"%s/%s/%s%s",
			c.rootPersistLocation,
			c.timestamp.Format(DATE_FORMAT),
			c.timestamp.Format(DATE_AND_TIME_FORMAT),
			c.ext),
	)
}
