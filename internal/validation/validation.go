package validation

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"swarmsync/internal/constants"
	"swarmsync/internal/errors"
)

var sessionIDPrefixes = []string{"05", "03", "15", "25"}

// ValidateThreadID accepts a prefixed session, group or blinded id, or a
// community room URL.
func ValidateThreadID(threadID string) error {
	if threadID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "thread ID cannot be empty")
	}
	if err := ValidateStringLength(threadID, "thread ID", 1, constants.MaxThreadIDLength); err != nil {
		return err
	}
	for _, char := range threadID {
		if char < 0x20 || char == 0x7f {
			return errors.New(errors.ErrCodeInvalidInput, "thread ID contains invalid characters")
		}
	}

	if len(threadID) == constants.SessionIDHexLength && hasSessionPrefix(threadID) {
		if _, err := hex.DecodeString(threadID); err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "thread ID is not valid hex")
		}
		return nil
	}

	u, err := url.Parse(threadID)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeInvalidInput, "thread ID must be a session id or community URL")
	}
	return nil
}

func hasSessionPrefix(id string) bool {
	for _, p := range sessionIDPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// ParsePageLimit reads a page size query value, returning def when raw is empty.
func ParsePageLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "limit must be a number")
	}
	if err := ValidateNumericRange(limit, "limit", 1, max); err != nil {
		return 0, err
	}
	return limit, nil
}

// ValidateStringLength validates string length against bounds
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	if len(value) < minLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too short (min %d characters)", fieldName, minLength))
	}

	if len(value) > maxLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too long (max %d characters)", fieldName, maxLength))
	}

	return nil
}

// ValidateNumericRange validates numeric values against bounds
func ValidateNumericRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too small (min %d)", fieldName, min))
	}

	if value > max {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too large (max %d)", fieldName, max))
	}

	return nil
}
