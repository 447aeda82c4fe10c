package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// Statistic represents how often a key (plugin id, state) appears
type Statistic struct {
	Name  string
	Count int
}

// CalculateTop returns the top N most frequent keys
// If limit is 0 or negative, returns all keys
func CalculateTop(frequency map[string]int, limit int) []Statistic {
	stats := convertFrequencyMapToStatistics(frequency)
	sortStatisticsByFrequency(stats)

	if shouldLimitResults(limit, len(stats)) {
		return stats[:limit]
	}
	return stats
}

// convertFrequencyMapToStatistics converts a map to a slice of Statistic
func convertFrequencyMapToStatistics(frequency map[string]int) []Statistic {
	stats := make([]Statistic, 0, len(frequency))
	for name, count := range frequency {
		stats = append(stats, Statistic{
			Name:  name,
			Count: count,
		})
	}
	return stats
}

// sortStatisticsByFrequency sorts statistics by count (descending) then by name (ascending)
func sortStatisticsByFrequency(stats []Statistic) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Count > stats[j].Count
	})
}

// shouldLimitResults checks if we should limit the results based on the limit and actual length
func shouldLimitResults(limit int, actualLength int) bool {
	return limit > 0 && actualLength > limit
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

// undoHints maps a plugin and the leading word of its command to advice
// for reverting what it did.
var undoHints = []struct {
	plugin string
	prefix string
	hint   string
}{
	{"f2", "f2 ", "Run `f2 -u` in the same directory to undo the last rename."},
	{"fileops", "rm ", "Removed files bypass the trash; restore them from a backup or `git checkout -- <path>` if tracked."},
	{"fileops", "mv ", "Move files back with `mv` using the paths shown in `dexter history list`."},
	{"jdupes", "jdupes ", "Duplicates deleted by jdupes cannot be recovered without a backup."},
	{"qpdf", "qpdf ", "qpdf writes a new output file; the input PDF is left untouched."},
}

// DeriveUndoHints generates undo hints for the commands that ran
// Returns a sorted list of unique hints
func DeriveUndoHints(records []domain.ExecutionRecord) []string {
	hintMap := make(map[string]struct{})

	for _, record := range records {
		if record.State != domain.StateSucceeded && record.State != domain.StateFailed {
			continue
		}
		normalizedCommand := strings.ToLower(record.Command)
		for _, candidate := range undoHints {
			if record.PluginID == candidate.plugin && strings.HasPrefix(normalizedCommand, candidate.prefix) {
				hintMap[candidate.hint] = struct{}{}
			}
		}
	}

	hints := make([]string, 0, len(hintMap))
	for hint := range hintMap {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}
