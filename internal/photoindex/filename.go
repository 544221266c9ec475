package photoindex

import (
	"regexp"
	"strconv"
	"time"
)

// filenameLayout parses the date/time token embedded in screenshot names.
const filenameLayout = "2006-01-02_15-04-05"

// VRChat screenshot filename grammar:
// VRChat_<yyyy-MM-dd>_<HH-mm-ss>.<fff>_<width>x<height>.<ext>
var filenamePattern = regexp.MustCompile(`^VRChat_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.\d{3}_(\d+)x(\d+)\.(?i:png|jpe?g|webp)$`)

// Meta is the metadata a screenshot filename carries.
type Meta struct {
	TakenAt time.Time // local time, millisecond token collapsed to seconds
	Width   int
	Height  int
}

// ParseFilename parses a screenshot base name. The second return is false
// when the name does not match the grammar, including names whose embedded
// timestamp is not a valid date; non-matching files are skipped, not errors.
func ParseFilename(name string) (Meta, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return Meta{}, false
	}

	takenAt, err := time.ParseInLocation(filenameLayout, m[1], time.Local)
	if err != nil {
		return Meta{}, false
	}

	width, err := strconv.Atoi(m[2])
	if err != nil || width <= 0 {
		return Meta{}, false
	}
	height, err := strconv.Atoi(m[3])
	if err != nil || height <= 0 {
		return Meta{}, false
	}

	return Meta{TakenAt: takenAt, Width: width, Height: height}, true
}
