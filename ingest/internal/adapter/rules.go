package adapter

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Direction is the classified direction of an activity.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
)

func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	}
	return "unknown"
}

type rulesFile struct {
	Direction struct {
		OutboundKeywords []string       `yaml:"outbound_keywords"`
		InboundKeywords  []string       `yaml:"inbound_keywords"`
		Codes            map[int]string `yaml:"codes"`
	} `yaml:"direction"`
	Metrics []struct {
		Metric    string   `yaml:"metric"`
		Keywords  []string `yaml:"keywords"`
		TypeCodes []int    `yaml:"type_codes"`
	} `yaml:"metrics"`
	HubSpotEventTypes map[string]string `yaml:"hubspot_event_types"`
}

type metricRule struct {
	metric   models.MetricID
	keywords []string
	codes    []int
}

// Rules holds the validated keyword and code tables used to classify events.
type Rules struct {
	outbound   []string
	inbound    []string
	directions map[int]Direction
	metrics    []metricRule
	hubspot    map[string]models.MetricID
}

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml is invalid: %v", err))
	}
	return r
}

// LoadRules reads rules from path, or returns the embedded defaults when
// path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes and validates a YAML rule document. Unknown fields,
// unknown metrics and unknown directions are rejected.
func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	r := &Rules{
		outbound:   lowerAll(f.Direction.OutboundKeywords),
		inbound:    lowerAll(f.Direction.InboundKeywords),
		directions: make(map[int]Direction, len(f.Direction.Codes)),
		hubspot:    make(map[string]models.MetricID, len(f.HubSpotEventTypes)),
	}

	for code, name := range f.Direction.Codes {
		switch strings.ToLower(name) {
		case "outbound":
			r.directions[code] = DirectionOutbound
		case "inbound":
			r.directions[code] = DirectionInbound
		default:
			return nil, fmt.Errorf("direction code %d: unknown direction %q", code, name)
		}
	}

	for i, m := range f.Metrics {
		id, err := models.ParseMetric(m.Metric)
		if err != nil {
			return nil, fmt.Errorf("metric rule %d: %w", i, err)
		}
		r.metrics = append(r.metrics, metricRule{
			metric:   id,
			keywords: lowerAll(m.Keywords),
			codes:    m.TypeCodes,
		})
	}

	for eventType, name := range f.HubSpotEventTypes {
		id, err := models.ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("hubspot event type %q: %w", eventType, err)
		}
		r.hubspot[strings.ToLower(eventType)] = id
	}

	return r, nil
}

// Direction classifies an event by name keywords, then by numeric code.
// A nil code means the payload carried no numeric direction.
func (r *Rules) Direction(eventName string, code *float64) Direction {
	name := strings.ToLower(eventName)
	if containsAny(name, r.outbound) {
		return DirectionOutbound
	}
	if containsAny(name, r.inbound) {
		return DirectionInbound
	}
	if c, ok := integral(code); ok {
		if d, ok := r.directions[c]; ok {
			return d
		}
	}
	return DirectionUnknown
}

// Metric classifies an event by name keywords across all rules, then by type
// code. ok is false when neither yields a metric.
func (r *Rules) Metric(eventName string, typeCode *float64) (models.MetricID, bool) {
	name := strings.ToLower(eventName)
	for _, rule := range r.metrics {
		if containsAny(name, rule.keywords) {
			return rule.metric, true
		}
	}
	if c, ok := integral(typeCode); ok {
		for _, rule := range r.metrics {
			for _, rc := range rule.codes {
				if rc == c {
					return rule.metric, true
				}
			}
		}
	}
	return "", false
}

// HubSpotMetric maps a HubSpot subscription type to a metric.
func (r *Rules) HubSpotMetric(eventType string) (models.MetricID, bool) {
	m, ok := r.hubspot[strings.ToLower(strings.TrimSpace(eventType))]
	return m, ok
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func integral(f *float64) (int, bool) {
	if f == nil || math.Trunc(*f) != *f {
		return 0, false
	}
	return int(*f), true
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
