package logs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CurrentPath returns the pointer to the newest log file for role.
func CurrentPath(logDir, role string) string {
	return filepath.Join(logDir, fmt.Sprintf("switchscan-%s.log", role))
}

// Last returns up to limit trailing complete lines of path and the offset
// just past them. A missing file yields no lines and offset zero. A
// non-positive limit returns no lines and the end offset.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	ring := make([]string, limit)
	count := 0
	idx := 0
	var offset int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		ring[idx] = strings.TrimRight(line, "\r\n")
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readFrom returns the complete lines after offset and the offset past the
// last one. A trailing partial line is left for the next read.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return lines, offset, nil
		}
		if err != nil {
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
}
