package story

import (
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}\s]+)\}`)

// Populate replaces every "{key}" in template with answers[key].
//
// Replacement is a single literal pass: values are never re-scanned, so an
// answer containing "{other}" stays as typed. Placeholders with no matching
// answer are left in place.
func Populate(template string, answers Answers) string {
	if len(answers) == 0 || template == "" {
		return template
	}

	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	// Fixed argument order keeps the replacer's tie-breaking independent of
	// map iteration.
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", answers[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Placeholders lists the distinct {key} tokens in template in order of first
// appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	keys := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}

// UnmatchedPlaceholders returns the placeholders in template that answers does
// not cover.
func UnmatchedPlaceholders(template string, answers Answers) []string {
	var missing []string
	for _, key := range Placeholders(template) {
		if _, ok := answers[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
