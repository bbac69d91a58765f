package idutil

import (
	"strings"
	"testing"
)

func TestNewUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id: %v", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIdPrefix(t *testing.T) {
	id := Id("mq_")
	if !strings.HasPrefix(id, "mq_") || len(id) != len("mq_")+36 {
		t.Fatal(id)
	}
}
