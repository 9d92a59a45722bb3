// Package classify derives activity metadata from export filenames.
//
// The source service names exported files with one of two conventions:
//
//	"3.1mi Run"                  (optionally suffixed "(2)" on collision)
//	"Ran 4.02 mi on 11_10_18"
//
// Filename is total over all inputs; anything unrecognized falls back to the
// bare name with activity type "Other".
package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/desertthunder/runx/internal/models"
)

// Extension is the export file extension produced by the source service.
const Extension = ".tcx"

// DefaultActivityType is used when no naming convention matches.
const DefaultActivityType = "Other"

var (
	// "3.1mi Run" or "3.1mi Trail Run (2)"
	distanceFirstPattern = regexp.MustCompile(`^([\d.]+mi)\s+(.+?)(?:\s+\(\d+\))?$`)

	// "Ran 4.02 mi on 11_10_18"
	verbFirstPattern = regexp.MustCompile(`^(\w+)\s+([\d.]+)\s+mi\s+on\s+\d+_\d+_\d+$`)
)

// verbTypes maps the past-tense verb of the second naming convention to the
// destination service's activity type.
var verbTypes = map[string]string{
	"Ran":    "Run",
	"Hiked":  "Hike",
	"Rode":   "Ride",
	"Walked": "Walk",
}

// Filename maps an export filename to its display name and activity type.
// The extension is matched case-insensitively, agreeing with how export
// files are enumerated.
func Filename(name string) models.ActivityDescriptor {
	stripped := name
	if ext := filepath.Ext(name); strings.EqualFold(ext, Extension) {
		stripped = name[:len(name)-len(ext)]
	}

	if m := distanceFirstPattern.FindStringSubmatch(stripped); m != nil {
		distance, activityType := m[1], m[2]
		return models.ActivityDescriptor{
			DisplayName:  fmt.Sprintf("%s %s", distance, activityType),
			ActivityType: activityType,
		}
	}

	if m := verbFirstPattern.FindStringSubmatch(stripped); m != nil {
		verb, distance := m[1], m[2]
		activityType, ok := verbTypes[verb]
		if !ok {
			activityType = DefaultActivityType
		}
		return models.ActivityDescriptor{
			DisplayName:  fmt.Sprintf("%smi %s", distance, activityType),
			ActivityType: activityType,
		}
	}

	return models.ActivityDescriptor{
		DisplayName:  stripped,
		ActivityType: DefaultActivityType,
	}
}
