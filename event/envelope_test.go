package event

import (
	"errors"
	"testing"
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/encoding/json"
)

func TestEncodeDecode(t *testing.T) {
	e := SprintCompleted(SprintCompletedEvent{SprintId: "S1", ProjectId: "P1", Velocity: 23, CompletedItems: 8, IncompleteItems: 1},
		Context{OrganizationId: "org-1", UserId: "u-1", CorrelationId: "c-1"})

	b, err := Encode(e)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.ParseJson(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"id", "type", "timestamp", "organizationId", "userId", "correlationId", "data"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing field %v in %s", k, b)
		}
	}
	if len(m) != 7 {
		t.Fatalf("unexpected fields: %s", b)
	}

	d, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if d.Id() != e.Id() || d.Type() != e.Type() || d.CorrelationId() != "c-1" || !d.Timestamp().Equal(e.Timestamp()) {
		t.Fatalf("decoded: %+v, original: %+v", d, e)
	}
	sc, ok := d.Data().(SprintCompletedEvent)
	if !ok {
		t.Fatalf("%T", d.Data())
	}
	if sc.Velocity != 23 || sc.CompletedItems != 8 || sc.IncompleteItems != 1 {
		t.Fatalf("%+v", sc)
	}
	if d.ProjectId() != "P1" {
		t.Fatal(d.ProjectId())
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		body string
		err  error
	}{
		{`not json`, core.ErrMalformedEvent},
		{`{"type":"pm.sprint.completed","data":{}}`, core.ErrMalformedEvent},
		{`{"id":"1","type":"pm.sprint.exploded","data":{}}`, core.ErrUnknownEventType},
		{`{"id":"1","type":"pm.sprint.completed"}`, core.ErrMalformedEvent},
		{`{"id":"1","type":"pm.sprint.completed","data":{"velocity":"fast"}}`, core.ErrMalformedEvent},
	}
	for _, c := range cases {
		_, err := Decode([]byte(c.body))
		if !errors.Is(err, c.err) {
			t.Errorf("body: %v, expected: %v, actual: %v", c.body, c.err, err)
		}
	}
}

func TestProjectIdAbsentForOps(t *testing.T) {
	e := WorkOrderOverdue(WorkOrderOverdueEvent{WorkOrderId: "WO-9", OverdueMinutes: 15, DueAt: time.Now()}, testCtx)
	if e.ProjectId() != "" {
		t.Fatal(e.ProjectId())
	}
}
