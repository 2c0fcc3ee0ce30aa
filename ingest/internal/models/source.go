package models

import (
	"errors"
	"fmt"
	"strings"
)

// Source identifies the upstream platform that delivered a webhook.
type Source string

const (
	SourceAloware Source = "ALOWARE"
	SourceHubSpot Source = "HUBSPOT"
)

// ErrUnknownSource is returned when a source name is not one of the known platforms.
var ErrUnknownSource = errors.New("unknown source")

// ParseSource maps a case-insensitive platform name to a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(s))) {
	case SourceAloware:
		return SourceAloware, nil
	case SourceHubSpot:
		return SourceHubSpot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

func (s Source) String() string { return string(s) }

// Slug is the lowercase form used in URLs and subjects.
func (s Source) Slug() string { return strings.ToLower(string(s)) }

// MetricID is the kind of agent activity a fact counts.
type MetricID string

const (
	MetricCalls  MetricID = "CALLS"
	MetricTexts  MetricID = "TEXTS"
	MetricEmails MetricID = "EMAILS"
	MetricCases  MetricID = "CASES"
)

// ErrUnknownMetric is returned for metric names outside the closed set.
var ErrUnknownMetric = errors.New("unknown metric")

// AllMetrics returns every metric in display order.
func AllMetrics() []MetricID {
	return []MetricID{MetricCalls, MetricTexts, MetricEmails, MetricCases}
}

// ParseMetric maps a case-insensitive metric name to a MetricID.
func ParseMetric(s string) (MetricID, error) {
	m := MetricID(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllMetrics() {
		if m == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

func (m MetricID) String() string { return string(m) }

// DisplayName is the human-readable name written to the metric dimension.
func (m MetricID) DisplayName() string {
	switch m {
	case MetricCalls:
		return "Calls"
	case MetricTexts:
		return "Texts"
	case MetricEmails:
		return "Emails"
	case MetricCases:
		return "Cases"
	}
	return string(m)
}
