// Package pricing converts free-form price expressions such as "₹50 L" or
// "₹2.00 Cr" into a single numeric magnitude expressed in lakhs.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// CroreMultiplier converts crores to lakhs.
const CroreMultiplier = 100

// ErrNoNumber is returned when the text contains no numeric substring.
var ErrNoNumber = errors.New("price text contains no number")

var (
	numberPattern = regexp.MustCompile(`\d*\.?\d+`)
	// "cr", "crs", "crore" or "crores" not followed by another letter; "2Cr",
	// "2 cr." and "1.5Crs" all match.
	croreMarker = regexp.MustCompile(`(?i)cr(?:s|ores?)?(?:[^a-z]|$)`)
)

// Normalize extracts the first number in text and scales it to lakhs.
// A crore marker anywhere in the text multiplies the number by 100; without one
// the number is returned as-is.
func Normalize(text string) (float64, error) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoNumber, text)
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrNoNumber, text, err)
	}

	if HasCroreMarker(text) {
		value *= CroreMultiplier
	}
	return value, nil
}

// HasCroreMarker reports whether text names a crore-scale amount.
func HasCroreMarker(text string) bool {
	return croreMarker.MatchString(text)
}
