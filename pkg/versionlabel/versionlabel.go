// Package versionlabel computes the names given to new pipeline versions.
//
// A label has the form <pipeline>-v<YYMMDD>-<HHMMSS>, with the date and time
// taken from the wall clock of a chosen timezone. Two versions deployed within
// the same second get the same label; the pipelines service rejects the second one.
package versionlabel

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	// Embed the zone database so labels do not depend on the host's zoneinfo.
	_ "time/tzdata"
)

const layout = "060102-150405"

var ErrUnknownTimezone = errors.New("unknown timezone")

// DefaultAliases maps short timezone codes to IANA identifiers.
var DefaultAliases = map[string]string{
	"JST": "Asia/Tokyo",
}

var defaultNamer = New(nil)

type Namer struct {
	aliases map[string]string
}

// New returns a Namer using DefaultAliases overlaid with extra.
func New(extra map[string]string) *Namer {
	aliases := maps.Clone(DefaultAliases)
	maps.Copy(aliases, extra)
	return &Namer{aliases: aliases}
}

// Location resolves a timezone name, consulting the alias table first.
func (n *Namer) Location(name string) (*time.Location, error) {
	if canonical, ok := n.aliases[name]; ok {
		name = canonical
	}
	if strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	// LoadLocation maps these to UTC and the host zone respectively.
	if name == "" || strings.EqualFold(name, "Local") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(titleCase(name))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// titleCase upper-cases the first letter of every word in a zone name, so
// "america/new_york" becomes "America/New_York". Zones with lower-case words
// inside, like "America/Port-au-Prince", still need their exact spelling.
func titleCase(name string) string {
	b := []byte(strings.ToLower(name))
	upper := true
	for i, c := range b {
		if upper && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		upper = c == '/' || c == '_' || c == '-'
	}
	return string(b)
}

func (n *Namer) Create(pipelineName, timezone string, timestamp time.Time) (string, error) {
	loc, err := n.Location(timezone)
	if err != nil {
		return "", err
	}
	return pipelineName + "-v" + timestamp.In(loc).Format(layout), nil
}

// CreateNow labels a version with the current time. The clock is read on every call.
func (n *Namer) CreateNow(pipelineName, timezone string) (string, error) {
	return n.Create(pipelineName, timezone, time.Now())
}

func Create(pipelineName, timezone string, timestamp time.Time) (string, error) {
	return defaultNamer.Create(pipelineName, timezone, timestamp)
}

func CreateNow(pipelineName, timezone string) (string, error) {
	return defaultNamer.CreateNow(pipelineName, timezone)
}
