package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/graaaaa/vrcphoto-companion/internal/logline"
	"github.com/graaaaa/vrcphoto-companion/internal/logstore"
)

// readLogFile reads one log file in full and returns the lines that parse
// as events, with the total line count seen. Lines VRChat writes that carry
// no event are routine and skipped silently.
func readLogFile(path string) (lines []logstore.Line, seen int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		seen++
		ev, ok := logline.Parse(line)
		if !ok {
			continue
		}
		lines = append(lines, logstore.Line{Content: line, Timestamp: ev.Timestamp})
	}
	if err := sc.Err(); err != nil {
		return nil, seen, fmt.Errorf("scan log file %q: %w", path, err)
	}
	return lines, seen, nil
}
