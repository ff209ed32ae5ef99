package report

import (
	"bytes"
	"io"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

type jsonEncoder struct{}

func (jsonEncoder) Ext() string { return "json" }

// Encode writes one object with an array per table. Object keys keep the
// column order.
func (jsonEncoder) Encode(w io.Writer, tables ...Table) error {
	doc := []byte("{}")
	for _, t := range tables {
		arr, err := encodeRows(t)
		if err != nil {
			return err
		}
		if doc, err = sjson.SetRawBytes(doc, t.Name, arr); err != nil {
			return err
		}
	}
	_, err := w.Write(pretty.Pretty(doc))
	return err
}

func encodeRows(t Table) ([]byte, error) {
	keys := t.Keys()
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		obj := []byte("{}")
		for j, key := range keys {
			var err error
			if obj, err = sjson.SetBytes(obj, key, row[j]); err != nil {
				return nil, err
			}
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(obj)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
