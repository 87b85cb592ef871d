// Package catalog maps human-friendly service names to Meevo service IDs
// for the Phoenix Encanto location.
package catalog

import (
	"errors"
	"strings"
)

// ErrNotResolved indicates the input is neither a known alias nor a
// canonical service ID.
var ErrNotResolved = errors.New("catalog: service not resolved")

// Production service IDs (Phoenix Encanto).
const (
	HaircutStandardID = "f9160450-0b51-4ddc-bcc7-ac150103d5c0"
	HaircutSkinFadeID = "14000cb7-a5bb-4a26-9f23-b0f3016cc009"
	LongLocksID       = "721e907d-fdae-41a5-bec4-ac150104229b"
	WashID            = "67c644bc-237f-4794-8b48-ac150106d5ae"
	GroomingID        = "65ee2a0d-e995-4d8d-a286-ac150106994b"
)

// canonicalMinLength is the shortest input treated as an already-canonical
// service ID when it contains a separator. Meevo IDs are 36-char UUIDs.
const canonicalMinLength = 30

var serviceAliases = map[string]string{
	// Haircut Standard
	"haircut_standard": HaircutStandardID,
	"haircut standard": HaircutStandardID,
	"standard":         HaircutStandardID,
	"haircut":          HaircutStandardID,
	"mens_haircut":     HaircutStandardID,
	"mens haircut":     HaircutStandardID,

	// Haircut Skin Fade
	"haircut_skin_fade": HaircutSkinFadeID,
	"haircut skin fade": HaircutSkinFadeID,
	"skin_fade":         HaircutSkinFadeID,
	"skin fade":         HaircutSkinFadeID,
	"fade":              HaircutSkinFadeID,

	// Long Locks
	"long_locks":     LongLocksID,
	"long locks":     LongLocksID,
	"long":           LongLocksID,
	"womens_haircut": LongLocksID,
	"womens haircut": LongLocksID,

	// Add-on: Wash
	"wash":    WashID,
	"shampoo": WashID,

	// Add-on: Grooming
	"grooming":   GroomingID,
	"beard":      GroomingID,
	"beard_trim": GroomingID,
	"beard trim": GroomingID,
}

// Resolve returns the canonical service ID for a service name. Inputs that
// already look like a service ID pass through unchanged. Lookup is
// case-insensitive and whitespace-trimmed.
func Resolve(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrNotResolved
	}
	if strings.Contains(trimmed, "-") && len(trimmed) > canonicalMinLength {
		return trimmed, nil
	}
	if id, ok := serviceAliases[strings.ToLower(trimmed)]; ok {
		return id, nil
	}
	return "", ErrNotResolved
}

// Primary returns the primary-service reference map served by /services.
func Primary() map[string]string {
	return map[string]string{
		"haircut_standard":  HaircutStandardID,
		"haircut_skin_fade": HaircutSkinFadeID,
		"long_locks":        LongLocksID,
	}
}

// Addons returns the add-on reference map served by /services.
func Addons() map[string]string {
	return map[string]string{
		"wash":     WashID,
		"grooming": GroomingID,
	}
}
