// Package json is the json codec shared by event envelopes and message payloads.
package json

import (
	jso "encoding/json"
	"strings"
	"unicode"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.Config{EscapeHTML: true, SortMapKeys: true, ValidateJsonRawMessage: true}.Froze()

func init() {
	codec.RegisterExtension(&camelCaseExtension{})
}

// Raw json value, decoding is delayed.
type RawMessage = jso.RawMessage

func ParseJson(body []byte, ptr any) error {
	return codec.Unmarshal(body, ptr)
}

func ParseJsonAs[T any](body []byte) (T, error) {
	var t T
	err := ParseJson(body, &t)
	return t, err
}

func WriteJson(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Exported fields without a json name are written in lower camel case, e.g., WorkOrderId -> workOrderId.
type camelCaseExtension struct {
	jsoniter.DummyExtension
}

func (x *camelCaseExtension) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	for _, b := range sd.Fields {
		name := b.Field.Name()
		if !unicode.IsUpper(rune(name[0])) {
			continue
		}
		if tag, ok := b.Field.Tag().Lookup("json"); ok {
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				continue
			}
		}
		n := lowerFirst(name)
		b.ToNames = []string{n}
		b.FromNames = []string{n}
	}
}

func lowerFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
