package store

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical op always
// produces identical payload bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Op payload maps always have string keys. The CBOR default
		// for any-typed targets is map[interface{}]interface{}; force
		// map[string]any so record.FromGo can consume the result.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// opPayload is the CBOR wire/storage form of an Op (minus the ID,
// which is derived and stored in its own column).
type opPayload struct {
	Replica  string         `cbor:"replica"`
	Seq      int64          `cbor:"seq"`
	Table    string         `cbor:"table"`
	Kind     string         `cbor:"kind"`
	RecordID string         `cbor:"record_id,omitempty"`
	Fields   map[string]any `cbor:"fields,omitempty"`
	Set      map[string]any `cbor:"set,omitempty"`
	Where    map[string]any `cbor:"where,omitempty"`
}

// encodeOp serializes an op to its CBOR payload.
func encodeOp(op Op) ([]byte, error) {
	p := opPayload{
		Replica:  op.Replica,
		Seq:      op.Seq,
		Table:    op.Table,
		Kind:     string(op.Kind),
		RecordID: op.RecordID,
	}
	if op.Fields != nil {
		p.Fields = record.ToGo(op.Fields).(map[string]any)
	}
	if op.Set != nil {
		p.Set = record.ToGo(op.Set.ToObject()).(map[string]any)
	}
	if op.Where != nil {
		p.Where = record.ToGo(op.Where.ToObject()).(map[string]any)
	}

	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode op: %w", err)
	}
	return data, nil
}

// decodeOp deserializes an op from its CBOR payload. The caller
// supplies the ID from the ops table column.
func decodeOp(id string, data []byte) (Op, error) {
	var p opPayload
	if err := decMode.Unmarshal(data, &p); err != nil {
		return Op{}, fmt.Errorf("decode op: %w", err)
	}

	op := Op{
		ID:       id,
		Replica:  p.Replica,
		Seq:      p.Seq,
		Table:    p.Table,
		Kind:     Kind(p.Kind),
		RecordID: p.RecordID,
	}

	if p.Fields != nil {
		v, err := record.FromGo(p.Fields)
		if err != nil {
			return Op{}, fmt.Errorf("decode op fields: %w", err)
		}
		op.Fields = v.(record.Object)
	}
	if p.Set != nil {
		v, err := record.FromGo(p.Set)
		if err != nil {
			return Op{}, fmt.Errorf("decode op set: %w", err)
		}
		op.Set = query.SetFromObject(v.(record.Object))
	}
	if p.Where != nil {
		v, err := record.FromGo(p.Where)
		if err != nil {
			return Op{}, fmt.Errorf("decode op where: %w", err)
		}
		op.Where = query.MatchFromObject(v.(record.Object))
	}

	return op, nil
}

// marshalFields converts a record object to JSON TEXT for the records
// table. Keys are sorted (RFC 8785 order) so stored rows are stable
// for golden traces.
func marshalFields(fields record.Object) (string, error) {
	data, err := fields.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses JSON TEXT from the records table.
func unmarshalFields(data string) (record.Object, error) {
	var obj record.Object
	if err := obj.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return obj, nil
}
