package articles

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/eun-legal/backend/internal/sourceapi/legifrance"
)

// validNumber matches article numbers made of up to four dash-separated
// numeric segments ("34", "34-1", "34-1-2-3"). Anything else, annexes
// included, has no defined position and sorts last.
var validNumber = regexp.MustCompile(`^\d+(-\d+){0,3}$`)

// sortValue folds a compound article number into a single float so that
// "2-1" lands between "2" and "3", with later segments weighted three
// decimal orders apart.
func sortValue(num string) float64 {
	segments := strings.Split(num, "-")
	weights := []float64{1, 1e3, 1e6, 1e9}

	var v float64
	for i, seg := range segments {
		if i >= len(weights) {
			break
		}
		n, err := strconv.ParseFloat(seg, 64)
		if err != nil {
			return v
		}
		v += n / weights[i]
	}
	return v
}

// arrange deduplicates the collected stubs by their id and number pair,
// sorts the ones with a parseable number, and appends the rest in
// encounter order. Distinct articles sharing a number are all kept.
func arrange(stubs []legifrance.ArticleStub) []legifrance.ArticleStub {
	seen := make(map[string]bool)

	var sorted, unsorted []legifrance.ArticleStub
	for _, s := range stubs {
		key := s.ID + "\x1f" + s.Num
		if seen[key] {
			continue
		}
		seen[key] = true

		if validNumber.MatchString(s.Num) {
			sorted = append(sorted, s)
		} else {
			unsorted = append(unsorted, s)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sortValue(sorted[i].Num) < sortValue(sorted[j].Num)
	})

	return append(sorted, unsorted...)
}
