package vcontrold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestSanitize_Numeric(t *testing.T) {
	tests := []struct {
		unit     Unit
		raw      string
		want     Value
		wantUnit string
	}{
		{UnitNumber, "12.345", Number(12.35), ""},
		{UnitNumber, "-12.345", Number(-12.35), ""},
		{UnitNumber, "42", Number(42), ""},
		{UnitHours, "1234.5\n", Number(1234.5), "hours"},
		{UnitPercent, "55.555", Number(55.56), "%"},
		{UnitPower, "15.0", Number(15), "W"},
		{UnitShift, "3", Number(3), "shift"},
		{UnitSlope, "1.4", Number(1.4), "slope"},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit)+"/"+tt.raw, func(t *testing.T) {
			got, unit, err := Sanitize(tt.unit, tt.raw, SanitizeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantUnit, unit)
		})
	}
}

func TestSanitize_NumericInvalid(t *testing.T) {
	_, _, err := Sanitize(UnitPercent, "n/a", SanitizeOptions{})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSanitize_Switch(t *testing.T) {
	got, unit, err := Sanitize(UnitSwitch, "1", SanitizeOptions{SwitchAsBool: true})
	require.NoError(t, err)
	assert.Equal(t, Bool(true), got)
	assert.Equal(t, "bool", unit)

	got, _, err = Sanitize(UnitSwitch, "0", SanitizeOptions{SwitchAsBool: true})
	require.NoError(t, err)
	assert.Equal(t, Bool(false), got)

	got, unit, err = Sanitize(UnitSwitch, "1", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("on"), got)
	assert.Equal(t, "bool", unit)

	got, _, err = Sanitize(UnitSwitch, "2", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("off"), got)

	_, _, err = Sanitize(UnitSwitch, "on", SanitizeOptions{})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSanitize_Temperature(t *testing.T) {
	got, unit, err := Sanitize(UnitTemperature, "21.0 Grad Celsius", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Number(21.0), got)
	assert.Equal(t, "C", unit)

	got, unit, err = Sanitize(UnitTemperature, "21.0 Grad Celsius", SanitizeOptions{Fahrenheit: true})
	require.NoError(t, err)
	assert.Equal(t, Number(69.8), got)
	assert.Equal(t, "F", unit)

	got, _, err = Sanitize(UnitTemperature, "-3.456", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Number(-3.46), got)
}

func TestSanitize_Time(t *testing.T) {
	got, unit, err := Sanitize(UnitTime, "2023-04-01T13:45:10+0200", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("2023-04-01 - 13:45:10"), got)
	assert.Equal(t, "datetime", unit)

	got, _, err = Sanitize(UnitTime, "2023-04-01T13:45:10+02:00", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("2023-04-01 - 13:45:10"), got)

	_, _, err = Sanitize(UnitTime, "yesterday", SanitizeOptions{})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSanitize_Error(t *testing.T) {
	raw := "2023-01-15T08:30:00+0100 Kurzschluss Aussentemperatursensor"
	got, unit, err := Sanitize(UnitError, raw, SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", unit)
	assert.Equal(t, ErrorEntry{
		Parsed: ErrorDetails{
			Date:         "2023-01-15",
			Time:         "08:30:00",
			ErrorMessage: "Kurzschluss Aussentemperatursensor",
		},
		Original: raw,
	}, got)
}

func TestSanitize_ErrorWithoutMessage(t *testing.T) {
	_, _, err := Sanitize(UnitError, "2023-01-15T08:30:00+0100", SanitizeOptions{})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSanitize_Timer(t *testing.T) {
	raw := "1:An:05:30  Aus:22:00\n2:An:--   Aus:--\n\n"
	got, unit, err := Sanitize(UnitTimer, raw, SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "timetable", unit)

	tt, ok := got.(Timetable)
	require.True(t, ok)
	require.Len(t, tt.Parsed, 2)
	assert.Equal(t, TimerEntry{Index: "1", On: ptr("05:30"), Off: ptr("22:00")}, tt.Parsed[0])
	assert.Equal(t, TimerEntry{Index: "2"}, tt.Parsed[1])
	assert.Equal(t, []string{"1:An:05:30  Aus:22:00", "2:An:--   Aus:--"}, tt.Original)
	assert.Equal(t, "1: 05:30-22:00, 2: -----", tt.String())
}

func TestSanitize_TimerSpacedIndex(t *testing.T) {
	got, _, err := Sanitize(UnitTimer, "01: An:05:00 Aus:22:00", SanitizeOptions{})
	require.NoError(t, err)

	tt := got.(Timetable)
	require.Len(t, tt.Parsed, 1)
	assert.Equal(t, "01", tt.Parsed[0].Index)
	assert.Equal(t, ptr("05:00"), tt.Parsed[0].On)
}

func TestSanitize_TimerMalformed(t *testing.T) {
	_, _, err := Sanitize(UnitTimer, "1:An:05:30", SanitizeOptions{})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestSanitize_PassThrough(t *testing.T) {
	got, unit, err := Sanitize(UnitText, "  Heizbetrieb \n", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("Heizbetrieb"), got)
	assert.Equal(t, "str", unit)

	got, unit, err = Sanitize(UnitNone, "V200KW2", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("V200KW2"), got)
	assert.Equal(t, "", unit)

	got, unit, err = Sanitize(Unit("furlongs"), "7 furlongs", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Text("7 furlongs"), got)
	assert.Equal(t, "", unit)
}

func TestSanitize_CaseInsensitiveUnit(t *testing.T) {
	got, unit, err := Sanitize(Unit("Temperature"), "4.5", SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, Number(4.5), got)
	assert.Equal(t, "C", unit)
}

func TestSanitize_Idempotent(t *testing.T) {
	units := []Unit{UnitNumber, UnitPercent, UnitTemperature, UnitText, UnitNone, UnitSwitch}
	for _, u := range units {
		t.Run(string(u), func(t *testing.T) {
			raw := "1\n"
			if u == UnitTemperature {
				raw = "1 Grad Celsius\n"
			}
			a, ua, errA := Sanitize(u, raw, SanitizeOptions{SwitchAsBool: true})
			b, ub, errB := Sanitize(u, raw, SanitizeOptions{SwitchAsBool: true})
			require.NoError(t, errA)
			require.NoError(t, errB)
			assert.Equal(t, a, b)
			assert.Equal(t, ua, ub)
		})
	}
}

func TestSanitize_ErrorOriginalReparses(t *testing.T) {
	got, _, err := Sanitize(UnitError, "2023-01-01T10:00:00+0100 Sensor fault\n", SanitizeOptions{})
	require.NoError(t, err)
	entry, ok := got.(ErrorEntry)
	require.True(t, ok)

	again, _, err := Sanitize(UnitError, entry.Original, SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, entry, again)
}

func TestSanitize_TimerOriginalReparses(t *testing.T) {
	raw := "1:An:05:30 Aus:22:00\n2:An:--   Aus:--\n3:An:06:00 Aus:08:15"
	got, _, err := Sanitize(UnitTimer, raw, SanitizeOptions{})
	require.NoError(t, err)
	tt, ok := got.(Timetable)
	require.True(t, ok)
	require.Len(t, tt.Parsed, 3)

	again, unit, err := Sanitize(UnitTimer, strings.Join(tt.Original, "\n"), SanitizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "timetable", unit)
	assert.Equal(t, tt.Parsed, again.(Timetable).Parsed)
	assert.Equal(t, tt.Original, again.(Timetable).Original)
}

func TestParseUnit(t *testing.T) {
	assert.Equal(t, UnitTemperature, ParseUnit(" Temperature "))
	assert.True(t, ParseUnit("timer").Known())
	assert.False(t, ParseUnit("furlongs").Known())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "12.35", Number(12.35).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "on", Text("on").String())
	assert.Equal(t, "raw", ErrorEntry{Original: "raw"}.String())
}
