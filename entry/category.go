package entry

import "strings"

// Category is the kind of an archive entry, derived from its name.
type Category string

const (
	// CategoryImage is a .jpg, .jpeg or .png entry.
	CategoryImage Category = "image"
	// CategoryLabel is a .txt entry holding detection lines.
	CategoryLabel Category = "label"
	// CategoryOther is anything else. Other entries are never validated.
	CategoryOther Category = "other"
)

var imageSuffixes = []string{".jpg", ".jpeg", ".png"}

const labelSuffix = ".txt"

// Classify returns the category of name by case-insensitive suffix.
func Classify(name string) Category {
	lower := strings.ToLower(name)
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return CategoryImage
		}
	}
	if strings.HasSuffix(lower, labelSuffix) {
		return CategoryLabel
	}
	return CategoryOther
}
