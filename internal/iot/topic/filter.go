package topic

import (
	"fmt"
	"strings"
)

const (
	// maxTopicLength is the MQTT limit on topic names and filters.
	maxTopicLength = 65535

	multiWildcard  = '#'
	singleWildcard = '+'
	sysPrefix      = '$'
)

// ValidateName checks a publish topic name: non-empty, within the MQTT
// length limit, no NUL and no wildcards.
func ValidateName(name string) error {
	if reason := lengthProblem(name); reason != "" {
		return fmt.Errorf("%w: %s", ErrInvalidName, reason)
	}
	if i := strings.IndexAny(name, "#+\x00"); i >= 0 {
		if name[i] == 0 {
			return fmt.Errorf("%w: NUL at offset %d", ErrInvalidName, i)
		}
		return fmt.Errorf("%w: wildcard at offset %d", ErrInvalidName, i)
	}
	return nil
}

// ValidateFilter checks a subscribe filter. A wildcard must fill its level,
// and '#' may only be the last level.
func ValidateFilter(filter string) error {
	if reason := lengthProblem(filter); reason != "" {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, reason)
	}
	if i := strings.IndexByte(filter, 0); i >= 0 {
		return fmt.Errorf("%w: NUL at offset %d", ErrInvalidFilter, i)
	}

	for level, rest, more := strings.Cut(filter, "/"); ; level, rest, more = strings.Cut(rest, "/") {
		switch {
		case strings.IndexByte(level, multiWildcard) >= 0 && (level != "#" || more):
			return fmt.Errorf("%w: '#' must be the whole last level", ErrInvalidFilter)
		case strings.IndexByte(level, singleWildcard) >= 0 && level != "+":
			return fmt.Errorf("%w: '+' must be a whole level", ErrInvalidFilter)
		}
		if !more {
			return nil
		}
	}
}

func lengthProblem(s string) string {
	switch {
	case len(s) == 0:
		return "empty"
	case len(s) > maxTopicLength:
		return fmt.Sprintf("%d bytes exceeds %d", len(s), maxTopicLength)
	}
	return ""
}

// MatchFilter reports whether the topic name matches the filter.
// Names starting with '$' never match a filter starting with a wildcard.
func MatchFilter(filter, name string) bool {
	if len(filter) == 0 || len(name) == 0 {
		return false
	}
	if name[0] == sysPrefix && (filter[0] == multiWildcard || filter[0] == singleWildcard) {
		return false
	}

	for {
		fLevel, fRest, fMore := strings.Cut(filter, "/")
		if fLevel == "#" {
			return true
		}
		nLevel, nRest, nMore := strings.Cut(name, "/")
		if fLevel != "+" && fLevel != nLevel {
			return false
		}
		switch {
		case !fMore && !nMore:
			return true
		case !nMore:
			// "a/#" also matches its parent "a".
			return fRest == "#"
		case !fMore:
			return false
		}
		filter, name = fRest, nRest
	}
}
