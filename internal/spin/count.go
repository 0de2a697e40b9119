package spin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCount reports a requested result count that is not a positive integer.
var ErrInvalidCount = errors.New("requested count must be a positive integer")

// ParseRequestedCount parses the user-entered result count. Anything that is
// not a positive integer yields 1 together with ErrInvalidCount so the caller
// can continue with the default and surface a message.
func ParseRequestedCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1, fmt.Errorf("%w: %q", ErrInvalidCount, raw)
	}
	if n <= 0 {
		return 1, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	return n, nil
}
