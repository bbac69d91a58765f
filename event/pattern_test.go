package event

import "testing"

func TestPatternMatches(t *testing.T) {
	cases := []struct {
		pattern Pattern
		key     Type
		match   bool
	}{
		{AllEvents, TypeWorkOrderCreated, true},
		{AllEvents, TypeTicketResolved, true},
		{AllCreated, TypeWorkOrderCreated, true},
		{AllCreated, TypeSprintCreated, true},
		{AllCreated, TypeWorkOrderCompleted, false},
		{AllTransitions, TypeWorkItemTransitioned, true},
		{AllTransitions, TypeTicketTransitioned, true},
		{AllTransitions, TypeWorkOrderCreated, false},
		{AllAssigned, TypeTicketAssigned, true},
		{OpsWorkOrderAll, TypeWorkOrderOverdue, true},
		{OpsWorkOrderAll, TypeWorkItemCreated, false},
		{PMAll, TypeSprintCompleted, true},
		{PMAll, TypeWorkOrderCompleted, false},
		{SDAll, TypeTicketCreated, true},
		{Exact(TypeWorkOrderOverdue), TypeWorkOrderOverdue, true},
		{Exact(TypeWorkOrderOverdue), TypeWorkOrderEscalated, false},
	}
	for _, c := range cases {
		if v := c.pattern.MatchesType(c.key); v != c.match {
			t.Errorf("%v matches %v, expected: %v, actual: %v", c.pattern, c.key, c.match, v)
		}
	}
}

func TestHashMatchesZeroWords(t *testing.T) {
	if !Pattern("pm.#").Matches("pm") {
		t.Fatal("'#' should match zero words")
	}
	if !Pattern("ops.#.created").Matches("ops.created") {
		t.Fatal("'#' should match zero words in the middle")
	}
	if Pattern("*.created").Matches("created") {
		t.Fatal("'*' should match exactly one word")
	}
}

func TestNamedPatternsMatchSomething(t *testing.T) {
	for _, p := range Patterns() {
		matched := false
		for _, typ := range Types() {
			if p.MatchesType(typ) {
				matched = true
				break
			}
		}
		if !matched {
			t.Errorf("pattern %v matches no declared type", p)
		}
	}
}
