package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LegacyVolumeML is the implicit unit factor for a bare (unitless) volume
// number: historical content wrote "2" to mean "2 legacy units" of 250 ml
// each.
const LegacyVolumeML = 250.0

// GramMilligrams is the milligram value of one gram, the default
// display unit for mass fields.
const GramMilligrams = 1000.0

var massUnits = map[string]float64{
	"mg": 1,
	"g":  1000,
	"kg": 1_000_000,
}

var volumeUnits = map[string]float64{
	"ml": 1,
	"l":  1000,
}

var numberRe = regexp.MustCompile(`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// ParseMass parses a dimensioned mass string ("1 kg", "500 g", "2.5mg") into
// its value in milligrams, the finest unit in the family. A bare number
// reads as grams, the default display unit.
func ParseMass(s string) (float64, error) {
	value, unit, err := parseNumberUnit(s)
	if err != nil {
		return 0, fmt.Errorf("parsing mass %q: %w", s, err)
	}
	if unit == "" {
		unit = "g"
	}
	factor, ok := massUnits[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("parsing mass %q: unknown unit %q", s, unit)
	}
	return value * factor, nil
}

// FormatMass renders a milligram quantity in grams, the corpus's default
// display unit for mass fields.
func FormatMass(milligrams float64) string {
	return formatUnit(milligrams, "g", massUnits)
}

// FormatMassLike renders a milligram quantity using the same unit as the
// reference string did, so proportional/relative modifiers keep the
// child's unit family (`"1 kg" × 1.5 → "1.5 kg"`).
func FormatMassLike(reference string, milligrams float64) string {
	_, unit, err := parseNumberUnit(reference)
	if err != nil || unit == "" {
		unit = "g"
	}
	return formatUnit(milligrams, unit, massUnits)
}

// ParseVolume parses a dimensioned volume string ("1 L", "250 ml") into its
// value in milliliters. A bare number is interpreted via the legacy
// unitless convention of 250 ml per unit.
func ParseVolume(s string) (float64, error) {
	value, unit, err := parseNumberUnit(s)
	if err != nil {
		return 0, fmt.Errorf("parsing volume %q: %w", s, err)
	}
	if unit == "" {
		return value * LegacyVolumeML, nil
	}
	factor, ok := volumeUnits[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("parsing volume %q: unknown unit %q", s, unit)
	}
	return value * factor, nil
}

// FormatVolume renders a milliliter quantity in milliliters.
func FormatVolume(milliliters float64) string {
	return formatUnit(milliliters, "ml", volumeUnits)
}

// FormatVolumeLike renders a milliliter quantity using the reference
// string's unit, falling back to milliliters for legacy unitless values.
func FormatVolumeLike(reference string, milliliters float64) string {
	_, unit, err := parseNumberUnit(reference)
	if err != nil || unit == "" {
		unit = "ml"
	}
	return formatUnit(milliliters, unit, volumeUnits)
}

// IsDimensioned reports whether s parses as a number with an optional unit
// suffix — the shape the Flattener must recognize before treating a field
// as additively/proportionally combinable.
func IsDimensioned(s string) bool {
	_, _, err := parseNumberUnit(s)
	return err == nil
}

// ParseNumeric extracts the bare numeric value from a dimensioned string,
// ignoring its unit. Used by the Flattener when the unit family doesn't
// matter, only the magnitude (e.g. scaling a value that will be
// reformatted by the caller).
func ParseNumeric(s string) (float64, error) {
	value, _, err := parseNumberUnit(s)
	return value, err
}

func parseNumberUnit(s string) (float64, string, error) {
	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("not a dimensioned number")
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid numeric literal %q: %w", m[1], err)
	}
	// Unit case is preserved so Format*Like can render the reference's
	// own spelling ("1 L" stays "L"); lookups lowercase as needed.
	return value, m[2], nil
}

func formatUnit(base float64, unit string, table map[string]float64) string {
	factor, ok := table[strings.ToLower(unit)]
	if !ok {
		factor = table["g"]
		if factor == 0 {
			factor = table["ml"]
		}
	}
	scaled := base / factor
	if scaled == float64(int64(scaled)) {
		return fmt.Sprintf("%d %s", int64(scaled), unit)
	}
	return fmt.Sprintf("%g %s", scaled, unit)
}

var durationTermRe = regexp.MustCompile(`([+-]?)\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]+)`)

var durationUnitSeconds = map[string]float64{
	"turn": 1, "turns": 1,
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
}

// ParseDuration parses a compound additive duration expression such as
// "+1 day -23 hours 50m" into a time.Duration. Each term's sign is sticky
// to that term only; a term with no explicit sign is additive. There is
// no bound on how many terms may compose.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationTermRe.FindAllStringSubmatch(s, -1)
	if matches == nil {
		return 0, fmt.Errorf("parsing duration %q: no terms found", s)
	}
	total := 0.0
	for _, m := range matches {
		sign := 1.0
		if m[1] == "-" {
			sign = -1.0
		}
		magnitude, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("parsing duration %q: %w", s, err)
		}
		unit := strings.ToLower(m[3])
		unitSeconds, ok := durationUnitSeconds[unit]
		if !ok {
			return 0, fmt.Errorf("parsing duration %q: unknown unit %q", s, unit)
		}
		total += sign * magnitude * unitSeconds
	}
	return time.Duration(total * float64(time.Second)), nil
}

// FormatDuration renders a duration back as a single "<n>s" term. The
// corpus accepts compound input but a flattened record only ever needs one
// canonical representation.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}
