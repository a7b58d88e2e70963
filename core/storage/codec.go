package storage

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"seedgraph/core/graph"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Seed file formats.
const (
	FormatYAML    = "yaml"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Codec encodes one batch of records as a seed file. Every codec writes a
// list of records, each keeping its fields in declaration order.
type Codec interface {
	// Name is the format name used in configuration.
	Name() string
	// Extension is the file extension without the dot.
	Extension() string
	// ContentType is the MIME type used for uploads.
	ContentType() string
	// Encode writes records to w.
	Encode(w io.Writer, records []graph.Record) error
}

// CodecFor returns the codec for a configured format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatYAML, "yml", "":
		return yamlCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatMsgpack, "msgp":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported seed format: %s", format)
	}
}

// exportValue turns record values into plain encodable values. Text
// marshalers other than time.Time (uuid.UUID among them) become strings.
func exportValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return val, nil
	case []byte:
		return val, nil
	case encoding.TextMarshaler:
		text, err := val.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	}
	return v, nil
}

type yamlCodec struct{}

func (yamlCodec) Name() string        { return FormatYAML }
func (yamlCodec) Extension() string   { return "yaml" }
func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, records []graph.Record) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, rec := range records {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range rec.Fields {
			v, err := exportValue(f.Value)
			if err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
			var value yaml.Node
			if err := value.Encode(v); err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name}, &value)
		}
		doc.Content = append(doc.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	return enc.Close()
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return FormatJSON }
func (jsonCodec) Extension() string   { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, records []graph.Record) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, f := range rec.Fields {
			if j > 0 {
				buf.WriteString(",")
			}
			v, err := exportValue(f.Value)
			if err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
			name, _ := json.Marshal(f.Name)
			value, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
			buf.WriteString("\n    ")
			buf.Write(name)
			buf.WriteString(": ")
			buf.Write(value)
		}
		if len(rec.Fields) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return FormatMsgpack }
func (msgpackCodec) Extension() string   { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }

func (msgpackCodec) Encode(w io.Writer, records []graph.Record) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(len(records)); err != nil {
		return err
	}
	for _, rec := range records {
		if err := enc.EncodeMapLen(len(rec.Fields)); err != nil {
			return err
		}
		for _, f := range rec.Fields {
			v, err := exportValue(f.Value)
			if err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
			if err := enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := enc.Encode(v); err != nil {
				return fmt.Errorf("failed to encode %s.%s: %w", rec.Type, f.Name, err)
			}
		}
	}
	return nil
}
