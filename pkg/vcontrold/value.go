package vcontrold

import (
	"strconv"
	"strings"
)

// Value is a sanitized reply. It is one of Number, Bool, Text, ErrorEntry
// or Timetable.
type Value interface {
	isValue()
	String() string
}

// Number is a numeric reading rounded to two decimals.
type Number float64

// Bool is a switch state in boolean rendering.
type Bool bool

// Text is a reply passed through as text, or a switch in on/off rendering.
type Text string

// ErrorEntry is one entry of the heating control's error history.
type ErrorEntry struct {
	Parsed   ErrorDetails `json:"parsed" yaml:"parsed"`
	Original string       `json:"original" yaml:"original"`
}

// ErrorDetails holds the split timestamp and message of an error entry.
type ErrorDetails struct {
	Date         string `json:"date" yaml:"date"`
	Time         string `json:"time" yaml:"time"`
	ErrorMessage string `json:"errorMessage" yaml:"errorMessage"`
}

// Timetable is a parsed switching schedule together with its source lines.
type Timetable struct {
	Parsed   []TimerEntry `json:"parsed" yaml:"parsed"`
	Original []string     `json:"original" yaml:"original"`
}

// TimerEntry is one on/off pair of a schedule. A nil time means the slot
// is unused.
type TimerEntry struct {
	Index string  `json:"index" yaml:"index"`
	On    *string `json:"on" yaml:"on"`
	Off   *string `json:"off" yaml:"off"`
}

func (Number) isValue()     {}
func (Bool) isValue()       {}
func (Text) isValue()       {}
func (ErrorEntry) isValue() {}
func (Timetable) isValue()  {}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

func (t Text) String() string {
	return string(t)
}

func (e ErrorEntry) String() string {
	return e.Original
}

func (t Timetable) String() string {
	parts := make([]string, 0, len(t.Parsed))
	for _, entry := range t.Parsed {
		parts = append(parts, entry.Index+": "+orPlaceholder(entry.On)+"-"+orPlaceholder(entry.Off))
	}
	return strings.Join(parts, ", ")
}

func orPlaceholder(s *string) string {
	if s == nil {
		return timerPlaceholder
	}
	return *s
}
