package event

import (
	"time"

	"github.com/opsdesk/eventbus/core"
	"github.com/opsdesk/eventbus/encoding/json"
)

// UserId used for transitions that are not triggered by a person.
const SystemUserId = "system"

// Context of the business operation that produced the event.
type Context struct {
	OrganizationId string
	UserId         string
	CorrelationId  string // optional, generated when absent.
}

// Payload is the event-kind-specific data carried by an Event.
//
// The set of payloads is closed, only the types in this package implement it.
type Payload interface {
	EventType() Type
	sealed()
}

// Payload scoped to a project, used to compute realtime rooms.
type ProjectScoped interface {
	ProjectRef() string
}

// Domain event envelope.
//
// Event is immutable, fields are only accessible through methods.
type Event struct {
	id             string
	typ            Type
	timestamp      time.Time
	organizationId string
	userId         string
	correlationId  string
	data           Payload
}

func (e *Event) Id() string             { return e.id }
func (e *Event) Type() Type             { return e.typ }
func (e *Event) Timestamp() time.Time   { return e.timestamp }
func (e *Event) OrganizationId() string { return e.organizationId }
func (e *Event) UserId() string         { return e.userId }
func (e *Event) CorrelationId() string  { return e.correlationId }
func (e *Event) Data() Payload          { return e.data }

// Context that caused this event, used to chain follow-up events in the same causal chain.
func (e *Event) Context() Context {
	return Context{OrganizationId: e.organizationId, UserId: e.userId, CorrelationId: e.correlationId}
}

// Project id of the payload, empty if the payload is not project scoped.
func (e *Event) ProjectId() string {
	if ps, ok := e.data.(ProjectScoped); ok {
		return ps.ProjectRef()
	}
	return ""
}

type wireEvent struct {
	Id             string          `json:"id"`
	Type           Type            `json:"type"`
	Timestamp      time.Time       `json:"timestamp"`
	OrganizationId string          `json:"organizationId"`
	UserId         string          `json:"userId"`
	CorrelationId  string          `json:"correlationId"`
	Data           json.RawMessage `json:"data"`
}

func (e *Event) MarshalJSON() ([]byte, error) {
	data, err := json.WriteJson(e.data)
	if err != nil {
		return nil, err
	}
	return json.WriteJson(wireEvent{
		Id:             e.id,
		Type:           e.typ,
		Timestamp:      e.timestamp,
		OrganizationId: e.organizationId,
		UserId:         e.userId,
		CorrelationId:  e.correlationId,
		Data:           data,
	})
}

// Encode event as json.
func Encode(e *Event) ([]byte, error) {
	if e == nil || !e.typ.Registered() {
		return nil, core.ErrUnknownEventType.New("cannot encode event")
	}
	return e.MarshalJSON()
}

// Decode json into Event.
//
// Returns ErrUnknownEventType if the type is not declared, ErrMalformedEvent if the body
// or the payload can't be parsed or required fields are missing.
func Decode(body []byte) (*Event, error) {
	var w wireEvent
	if err := json.ParseJson(body, &w); err != nil {
		return nil, core.ErrMalformedEvent.Wrapf(err, "invalid envelope")
	}
	if w.Id == "" || w.Type == "" {
		return nil, core.ErrMalformedEvent.New("missing id or type")
	}
	dec, ok := registry[w.Type]
	if !ok {
		return nil, core.ErrUnknownEventType.New("type: '%v'", w.Type)
	}
	if len(w.Data) == 0 {
		return nil, core.ErrMalformedEvent.New("missing data, event: %v", w.Id)
	}
	p, err := dec(w.Data)
	if err != nil {
		return nil, core.ErrMalformedEvent.Wrapf(err, "invalid data for type '%v', event: %v", w.Type, w.Id)
	}
	return &Event{
		id:             w.Id,
		typ:            w.Type,
		timestamp:      w.Timestamp,
		organizationId: w.OrganizationId,
		userId:         w.UserId,
		correlationId:  w.CorrelationId,
		data:           p,
	}, nil
}

func decoder[P Payload]() payloadDecoder {
	return func(data []byte) (Payload, error) {
		p, err := json.ParseJsonAs[P](data)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
