package entry

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// labelFields is the number of whitespace-separated fields per detection line.
const labelFields = 5

var boxFieldNames = [4]string{"x", "y", "w", "h"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LabelRecord is one detection line: a class index and a box.
type LabelRecord struct {
	ClassIndex float64 `json:"classIndex"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

// ParseLabelLine parses a single detection line.
// The line must have exactly five fields that parse as numbers. The class
// index may be any number. The four box fields must be non-negative and have
// no upper bound.
func ParseLabelLine(line string) (LabelRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != labelFields {
		return LabelRecord{}, fmt.Errorf("expected %d fields, got %d", labelFields, len(fields))
	}

	class, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return LabelRecord{}, fmt.Errorf("class index %q is not a number", fields[0])
	}

	var box [4]float64
	for i, raw := range fields[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return LabelRecord{}, fmt.Errorf("%s %q is not a number", boxFieldNames[i], raw)
		}
		// NaN fails this comparison as well.
		if !(v >= 0) {
			return LabelRecord{}, fmt.Errorf("%s %s must be >= 0", boxFieldNames[i], raw)
		}
		box[i] = v
	}

	return LabelRecord{ClassIndex: class, X: box[0], Y: box[1], W: box[2], H: box[3]}, nil
}

// ValidateLabel checks every non-blank line of a label file and returns the
// parsed records. LF, CRLF and lone CR all end a line. The first malformed
// line stops checking; the error names its 1-based line number and content.
// An empty file is valid.
func ValidateLabel(payload []byte) ([]LabelRecord, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("invalid UTF-8 at byte %d", invalidUTF8Offset(payload))
	}
	payload = bytes.TrimPrefix(payload, utf8BOM)

	var records []LabelRecord
	text := lineBreaks.Replace(string(payload))
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := ParseLabelLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d %q: %w", i+1, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// lineBreaks folds CRLF and lone CR line endings into LF.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
