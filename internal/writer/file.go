package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

const (
	fileExt    = ".parquet"
	partialExt = ".partial"
)

var fileNamePattern = regexp.MustCompile(`^(\d{9})\.parquet(\.partial)?$`)

// FileName returns the name of the file with the given sequence number.
func FileName(seq int) string {
	return fmt.Sprintf("%09d%s", seq, fileExt)
}

// nextSeq returns one past the highest sequence number already present in
// dir, complete or partial, or 0 when there is none.
func nextSeq(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read output dir: %w", err)
	}

	next := 0
	for _, e := range entries {
		m := fileNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next, nil
}

// countingWriter tracks bytes handed to the file. It deliberately has no
// Close method so the parquet writer leaves the file open for Sync.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// openFile is the file currently being appended to.
type openFile struct {
	seq       int
	path      string
	partial   string
	file      *os.File
	counter   *countingWriter
	fw        *pqarrow.FileWriter
	schema    *arrow.Schema
	openedAt  time.Time
	records   int64
	rowGroups int
}

// createPartial creates <dir>/<seq>.parquet.partial, moving past sequence
// numbers that are taken.
func createPartial(dir string, seq int) (*os.File, int, error) {
	for {
		final := filepath.Join(dir, FileName(seq))
		if _, err := os.Stat(final); err == nil {
			seq++
			continue
		}
		f, err := os.OpenFile(final+partialExt, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			seq++
			continue
		}
		if err != nil {
			return nil, seq, fmt.Errorf("create file: %w", err)
		}
		return f, seq, nil
	}
}

// abandon closes the handle without finalizing; the .partial file stays.
func (f *openFile) abandon() {
	if f.file != nil {
		f.file.Close()
	}
}
