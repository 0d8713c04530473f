package vcontrold

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the tag of a catalog command that selects how its reply is parsed.
type Unit string

// Known units
const (
	UnitError       Unit = "error"
	UnitHours       Unit = "hours"
	UnitNone        Unit = "none"
	UnitNumber      Unit = "number"
	UnitPercent     Unit = "percent"
	UnitPower       Unit = "power"
	UnitShift       Unit = "shift"
	UnitSlope       Unit = "slope"
	UnitSwitch      Unit = "switch"
	UnitTemperature Unit = "temperature"
	UnitText        Unit = "text"
	UnitTime        Unit = "time"
	UnitTimer       Unit = "timer"
)

// ParseUnit normalizes a unit tag. Unknown tags are returned as is.
func ParseUnit(tag string) Unit {
	return Unit(strings.ToLower(strings.TrimSpace(tag)))
}

// Known reports whether the unit has a dedicated parser.
func (u Unit) Known() bool {
	_, ok := sanitizers[u]
	return ok
}

// SanitizeOptions are the two rendering switches of the sanitizer.
type SanitizeOptions struct {
	// SwitchAsBool renders switches as Bool instead of "on"/"off".
	SwitchAsBool bool
	// Fahrenheit converts temperatures from Celsius.
	Fahrenheit bool
}

type sanitizeFunc func(raw string, opts SanitizeOptions) (Value, string, error)

var sanitizers = map[Unit]sanitizeFunc{
	UnitError:       sanitizeError,
	UnitHours:       roundedWithUnit(string(UnitHours)),
	UnitNone:        passThrough(""),
	UnitNumber:      roundedWithUnit(""),
	UnitPercent:     roundedWithUnit("%"),
	UnitPower:       roundedWithUnit("W"),
	UnitShift:       roundedWithUnit(string(UnitShift)),
	UnitSlope:       roundedWithUnit(string(UnitSlope)),
	UnitSwitch:      sanitizeSwitch,
	UnitTemperature: sanitizeTemperature,
	UnitText:        passThrough("str"),
	UnitTime:        sanitizeTime,
	UnitTimer:       sanitizeTimer,
}

// Sanitize parses a raw reply according to unit and returns the typed value
// together with its display unit ("" when there is none). Trailing line
// breaks and surrounding whitespace are removed first. Unknown units pass
// the text through. Parse failures wrap ErrProtocol.
func Sanitize(unit Unit, raw string, opts SanitizeOptions) (Value, string, error) {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\n"))

	fn, ok := sanitizers[ParseUnit(string(unit))]
	if !ok {
		return Text(raw), "", nil
	}
	return fn(raw, opts)
}

// round2 rounds half away from zero on the decimal representation, so
// "12.345" becomes 12.35.
func round2(d decimal.Decimal) Number {
	return Number(d.Round(2).InexactFloat64())
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: not a number: %q", ErrProtocol, raw)
	}
	return d, nil
}

func roundedWithUnit(display string) sanitizeFunc {
	return func(raw string, _ SanitizeOptions) (Value, string, error) {
		d, err := parseDecimal(raw)
		if err != nil {
			return nil, "", err
		}
		return round2(d), display, nil
	}
}

func passThrough(display string) sanitizeFunc {
	return func(raw string, _ SanitizeOptions) (Value, string, error) {
		return Text(raw), display, nil
	}
}

func sanitizeSwitch(raw string, opts SanitizeOptions) (Value, string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: not a switch state: %q", ErrProtocol, raw)
	}
	on := n == 1
	if opts.SwitchAsBool {
		return Bool(on), "bool", nil
	}
	if on {
		return Text("on"), "bool", nil
	}
	return Text("off"), "bool", nil
}

var (
	celsiusToFahrenheitFactor = decimal.NewFromFloat(1.8)
	celsiusToFahrenheitOffset = decimal.NewFromInt(32)
)

func sanitizeTemperature(raw string, opts SanitizeOptions) (Value, string, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, verboseTempSuffix, ""))
	d, err := parseDecimal(raw)
	if err != nil {
		return nil, "", err
	}
	if opts.Fahrenheit {
		return round2(d.Mul(celsiusToFahrenheitFactor).Add(celsiusToFahrenheitOffset)), "F", nil
	}
	return round2(d), "C", nil
}

// Timestamp layouts accepted for error and time replies. vcontrold prints
// a numeric offset without colon; the RFC 3339 form is accepted as well.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: not a timestamp: %q", ErrProtocol, raw)
}

func sanitizeError(raw string, _ SanitizeOptions) (Value, string, error) {
	stamp, msg, found := strings.Cut(raw, " ")
	if !found {
		return nil, "", fmt.Errorf("%w: error entry without message: %q", ErrProtocol, raw)
	}
	ts, err := parseTimestamp(stamp)
	if err != nil {
		return nil, "", err
	}
	return ErrorEntry{
		Parsed: ErrorDetails{
			Date:         ts.Format("2006-01-02"),
			Time:         ts.Format("15:04:05"),
			ErrorMessage: msg,
		},
		Original: raw,
	}, "", nil
}

func sanitizeTime(raw string, _ SanitizeOptions) (Value, string, error) {
	ts, err := parseTimestamp(raw)
	if err != nil {
		return nil, "", err
	}
	return Text(ts.Format("2006-01-02 - 15:04:05")), "datetime", nil
}

// sanitizeTimer parses lines like "1:An:05:30  Aus:22:00" or
// "01: An:05:00 Aus:22:00" into timer entries.
func sanitizeTimer(raw string, _ SanitizeOptions) (Value, string, error) {
	lines := strings.Split(raw, "\n")
	entries := make([]TimerEntry, 0, len(lines))
	for _, line := range lines {
		normalized := strings.Join(strings.Fields(line), " ")
		if normalized == "" {
			continue
		}
		entry, err := parseTimerLine(normalized)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, entry)
	}
	return Timetable{Parsed: entries, Original: lines}, "timetable", nil
}

func parseTimerLine(line string) (TimerEntry, error) {
	index, rest, found := strings.Cut(line, ":")
	if !found {
		return TimerEntry{}, fmt.Errorf("%w: timer line without index: %q", ErrProtocol, line)
	}
	tokens := strings.Fields(rest)
	if len(tokens) != 2 {
		return TimerEntry{}, fmt.Errorf("%w: timer line needs on and off token: %q", ErrProtocol, line)
	}
	on, err := timerSlot(tokens[0])
	if err != nil {
		return TimerEntry{}, err
	}
	off, err := timerSlot(tokens[1])
	if err != nil {
		return TimerEntry{}, err
	}
	return TimerEntry{Index: strings.TrimSpace(index), On: on, Off: off}, nil
}

// timerSlot extracts the time from a "<label>:<HH:MM>" token.
func timerSlot(token string) (*string, error) {
	_, value, found := strings.Cut(token, ":")
	if !found || value == "" {
		return nil, fmt.Errorf("%w: malformed timer token: %q", ErrProtocol, token)
	}
	if value == timerPlaceholder {
		return nil, nil
	}
	return &value, nil
}
