package output

import (
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

var (
	indentedJSON = jsoniter.Config{
		IndentionStep:          4,
		EscapeHTML:             false,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()

	compactJSON = jsoniter.ConfigCompatibleWithStandardLibrary
)

// writeJSON writes {"meta": {...}, "data": {"<command>": {...}}} keeping
// execution order.
func writeJSON(w io.Writer, rec vcontrold.Record) error {
	stream := jsoniter.NewStream(indentedJSON, w, 4096)

	stream.WriteObjectStart()
	stream.WriteObjectField("meta")
	writeObject(stream, metaFields(rec))
	stream.WriteMore()
	stream.WriteObjectField("data")
	if len(rec.Items) == 0 {
		stream.WriteEmptyObject()
	} else {
		stream.WriteObjectStart()
		for i, item := range rec.Items {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(item.Command)
			writeObject(stream, itemFields(item))
		}
		stream.WriteObjectEnd()
	}
	stream.WriteObjectEnd()
	stream.WriteRaw("\n")

	if stream.Error != nil {
		return fmt.Errorf("encode report: %w", stream.Error)
	}
	return stream.Flush()
}

func writeObject(stream *jsoniter.Stream, fields []field) {
	stream.WriteObjectStart()
	for i, f := range fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(f.key)
		stream.WriteVal(f.value)
	}
	stream.WriteObjectEnd()
}

// ItemJSON returns the compact JSON object of a single report item.
func ItemJSON(item vcontrold.RecordItem) ([]byte, error) {
	stream := compactJSON.BorrowStream(nil)
	defer compactJSON.ReturnStream(stream)

	writeObject(stream, itemFields(item))
	if stream.Error != nil {
		return nil, fmt.Errorf("encode %s: %w", item.Command, stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// ReportJSON returns the indented JSON document of a report.
func ReportJSON(rec vcontrold.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v as indented JSON with sorted map keys.
func WriteJSON(w io.Writer, v any) error {
	enc := indentedJSON.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
