package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

// NextMachineUsername returns prefix followed by the next free zero-padded
// sequence number, given the usernames already taken with that prefix.
func NextMachineUsername(prefix string, taken []string) string {
	seqRe := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)$`)

	next := 1
	for _, name := range taken {
		m := seqRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, next)
}
