package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// NumberWidth is the canonical width of a ticket number. Numbers above 9999
// print at their natural width; %0*d never truncates.
const NumberWidth = 4

// MaxNumberSpaceSize is the operational cap on the size of an event's range.
const MaxNumberSpaceSize = 100_000

var (
	ErrInvalidRange  = errors.New("end number must be greater than or equal to start number")
	ErrRangeTooLarge = fmt.Errorf("number range exceeds the %d ticket cap", MaxNumberSpaceSize)
)

// NumberSpace is the closed interval [Start, End] of ticket numbers belonging
// to one event. It is a pure value; all operations work on in-memory sets.
type NumberSpace struct {
	Start int
	End   int
}

func NewNumberSpace(start, end int) (NumberSpace, error) {
	if end < start {
		return NumberSpace{}, ErrInvalidRange
	}
	if end-start+1 > MaxNumberSpaceSize {
		return NumberSpace{}, ErrRangeTooLarge
	}

	return NumberSpace{Start: start, End: end}, nil
}

func (s NumberSpace) Size() int {
	return s.End - s.Start + 1
}

// FormatNumber renders n in canonical zero-padded form, e.g. 7 -> "0007".
func FormatNumber(n int) string {
	return fmt.Sprintf("%0*d", NumberWidth, n)
}

// Contains reports whether number is a canonical ticket number inside the
// space. Rejected sentinels and non-numeric strings are never contained.
func (s NumberSpace) Contains(number string) bool {
	if strings.HasPrefix(number, RejectedPrefix) {
		return false
	}

	n, err := strconv.Atoi(number)
	if err != nil {
		return false
	}

	return n >= s.Start && n <= s.End && FormatNumber(n) == number
}

// Sequence returns every number of the space in ascending canonical form.
func (s NumberSpace) Sequence() []string {
	numbers := make([]string, 0, s.Size())
	for n := s.Start; n <= s.End; n++ {
		numbers = append(numbers, FormatNumber(n))
	}

	return numbers
}

// Difference returns the numbers of the space not present in claimed, in
// ascending order, or shuffled with rng when shuffle is set.
func (s NumberSpace) Difference(claimed map[string]struct{}, shuffle bool, rng *rand.Rand) []string {
	available := make([]string, 0, s.Size()-len(claimed))
	for n := s.Start; n <= s.End; n++ {
		number := FormatNumber(n)
		if _, taken := claimed[number]; !taken {
			available = append(available, number)
		}
	}

	if shuffle && rng != nil {
		rng.Shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})
	}

	return available
}
