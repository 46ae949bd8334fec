package app

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// ComputeTags returns the ordered tag sequence for one wiki: the farm, the
// code version, every set state that is not exempt (sorted by state name),
// then one tag per active extension. Empty farm or version are skipped.
func ComputeTags(farm, version string, states map[string]domain.StateValue, extensions []string) domain.Tags {
	tags := make(domain.Tags, 0, 2+len(states)+len(extensions))
	if farm != "" {
		tags = append(tags, farm)
	}
	if version != "" {
		tags = append(tags, version)
	}
	for _, name := range slices.Sorted(maps.Keys(states)) {
		if states[name].Tagged() {
			tags = append(tags, name)
		}
	}
	for _, ext := range extensions {
		tags = append(tags, ExtensionTag(ext))
	}
	return tags
}

// ExtensionTag is the tag an active extension contributes.
func ExtensionTag(name string) string {
	return domain.ExtensionTagPrefix + strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}
