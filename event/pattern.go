package event

import "strings"

// Routing pattern used to bind a queue to the topic exchange.
//
// '*' matches exactly one word, '#' matches zero or more words.
type Pattern string

const (
	AllEvents       Pattern = "#"
	AllCreated      Pattern = "*.*.created"
	AllTransitions  Pattern = "*.*.transitioned"
	AllAssigned     Pattern = "*.*.assigned"
	OpsWorkOrderAll Pattern = "ops.work_order.*"
	PMAll           Pattern = "pm.#"
	SDAll           Pattern = "sd.#"
)

// Pattern that matches exactly the given type.
func Exact(t Type) Pattern {
	return Pattern(t)
}

// Named patterns, exact patterns are not included.
func Patterns() []Pattern {
	return []Pattern{AllEvents, AllCreated, AllTransitions, AllAssigned, OpsWorkOrderAll, PMAll, SDAll}
}

// Check whether the routing key matches the pattern.
func (p Pattern) Matches(routingKey string) bool {
	return matchWords(strings.Split(string(p), "."), strings.Split(routingKey, "."))
}

// Check whether the event type matches the pattern.
func (p Pattern) MatchesType(t Type) bool {
	return p.Matches(string(t))
}

func (p Pattern) String() string {
	return string(p)
}

func matchWords(p []string, k []string) bool {
	if len(p) == 0 {
		return len(k) == 0
	}
	switch p[0] {
	case "#":
		for i := 0; i <= len(k); i++ {
			if matchWords(p[1:], k[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(k) > 0 && matchWords(p[1:], k[1:])
	default:
		return len(k) > 0 && p[0] == k[0] && matchWords(p[1:], k[1:])
	}
}
