package nimfile

import (
	"strings"
)

// Name validation errors use one fixed message per violation class so callers
// and tests can match on them.
const (
	errEmptyName       = "resource name must not be null, empty, or whitespace only"
	errNameLength      = "resource name length must be between 1 and 255 characters"
	errIllegalChar     = "resource name contains an illegal character"
	errReservedName    = "resource name is a reserved name"
	errStoreNameLength = "store name length must be between 3 and 63 characters"
	errStoreNameChar   = "store names may contain only lowercase letters, digits, and hyphens"
)

const (
	fileNameMaxLength = 255
	storeNameMin      = 3
	storeNameMax      = 63
)

// Characters forbidden in file names (in addition to control bytes).
const illegalFileNameChars = `"\:|<>*?`

// reservedNames are path components the service refuses regardless of casing.
var reservedNames = []string{
	".", "..", "LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"PRN", "AUX", "NUL", "CON", "CLOCK$",
}

// ValidateFileName checks a single file name (one path component) against the
// service's naming rules. Violations report ErrorKindInvalidArgument with a
// fixed descriptive message per violation class.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgument(errEmptyName)
	}
	if len(name) > fileNameMaxLength {
		return invalidArgument(errNameLength)
	}
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(illegalFileNameChars, r) {
			return invalidArgument(errIllegalChar)
		}
	}
	for _, reserved := range reservedNames {
		if strings.EqualFold(name, reserved) {
			return invalidArgument(errReservedName)
		}
	}
	return nil
}

// ValidateFilePath checks a slash-separated file path: every component must
// itself be a valid file name.
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return invalidArgument(errEmptyName)
	}
	for _, part := range strings.Split(path, "/") {
		if err := ValidateFileName(part); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStoreName checks a store name. Stores live in DNS labels, so the
// rules are tighter: 3-63 characters, lowercase letters, digits, and interior
// hyphens.
func ValidateStoreName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgument(errEmptyName)
	}
	if len(name) < storeNameMin || len(name) > storeNameMax {
		return invalidArgument(errStoreNameLength)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
			if i == 0 || i == len(name)-1 {
				return invalidArgument(errStoreNameChar)
			}
		default:
			return invalidArgument(errStoreNameChar)
		}
	}
	return nil
}
