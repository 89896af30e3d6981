package store

import (
	"fmt"
	"regexp"
	"strconv"
)

var coNumberPattern = regexp.MustCompile(`^CO-(\d+)$`)

// NextChangeOrderNumber returns the next number in the CO-{n} sequence:
// one past the highest numeric suffix among the existing numbers, CO-1 when
// none exist. Non-conforming numbers are ignored.
func NextChangeOrderNumber(existing []string) string {
	max := 0
	for _, number := range existing {
		m := coNumberPattern.FindStringSubmatch(number)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("CO-%d", max+1)
}
