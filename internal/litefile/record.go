package litefile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// ValueType is the storage class of a decoded record value.
type ValueType int

const (
	ValueNull ValueType = iota
	ValueInteger
	ValueFloat
	ValueText
	ValueBlob
)

func (t ValueType) String() string {
	switch t {
	case ValueInteger:
		return "integer"
	case ValueFloat:
		return "real"
	case ValueText:
		return "text"
	case ValueBlob:
		return "blob"
	default:
		return "null"
	}
}

// Value is one column of a record. Text keeps the raw bytes in the database
// text encoding, use Text to decode them.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Bytes []byte
}

// Text decodes a text value stored in the given encoding.
func (v Value) Text(encoding TextEncoding) (string, error) {
	if v.Type != ValueText {
		return "", fmt.Errorf("value of type %s is not text", v.Type)
	}
	switch encoding {
	case TextEncodingUTF8:
		if !utf8.Valid(v.Bytes) {
			return "", fieldError(FieldRecord, "invalid utf-8 text")
		}
		return string(v.Bytes), nil
	case TextEncodingUTF16LE, TextEncodingUTF16BE:
		if len(v.Bytes)%2 != 0 {
			return "", fieldError(FieldRecord, "utf-16 text has odd length %d", len(v.Bytes))
		}
		order := binary.ByteOrder(binary.LittleEndian)
		if encoding == TextEncodingUTF16BE {
			order = binary.BigEndian
		}
		units := make([]uint16, len(v.Bytes)/2)
		for i := range units {
			units[i] = order.Uint16(v.Bytes[i*2:])
		}
		return string(utf16.Decode(units)), nil
	default:
		return "", fieldError(FieldDatabaseTextEncoding, "unknown text encoding %d", encoding)
	}
}

// Record is a decoded record payload, one value per column.
type Record []Value

// DecodeRecord decodes the record format: a varint header size, one varint
// serial type per column, then the column bodies.
func DecodeRecord(payload []byte) (Record, error) {
	headerSize, n, err := DecodeVarint(payload)
	if err != nil {
		return nil, err
	}
	if headerSize < uint64(n) || headerSize > uint64(len(payload)) {
		return nil, fieldError(FieldRecord, "record header size %d does not fit payload of %d bytes", headerSize, len(payload))
	}

	var serialTypes []uint64
	for i := n; i < int(headerSize); {
		serialType, n, err := DecodeVarint(payload[i:headerSize])
		if err != nil {
			return nil, err
		}
		serialTypes = append(serialTypes, serialType)
		i += n
	}

	var (
		aRecord = make(Record, 0, len(serialTypes))
		body    = payload[headerSize:]
	)
	for _, serialType := range serialTypes {
		size, err := serialTypeSize(serialType)
		if err != nil {
			return nil, err
		}
		if err := checkPayload(FieldRecord, body, size); err != nil {
			return nil, err
		}
		aRecord = append(aRecord, decodeValue(serialType, body[:size]))
		body = body[size:]
	}

	return aRecord, nil
}

func serialTypeSize(serialType uint64) (int, error) {
	switch {
	case serialType <= 4:
		return []int{0, 1, 2, 3, 4}[serialType], nil
	case serialType == 5:
		return 6, nil
	case serialType == 6, serialType == 7:
		return 8, nil
	case serialType == 8, serialType == 9:
		return 0, nil
	case serialType == 10, serialType == 11:
		return 0, fieldError(FieldRecord, "reserved serial type %d", serialType)
	default:
		return int((serialType - 12) / 2), nil
	}
}

func decodeValue(serialType uint64, buf []byte) Value {
	switch {
	case serialType == 0:
		return Value{Type: ValueNull}
	case serialType <= 6:
		return Value{Type: ValueInteger, Int: decodeSignedInt(buf)}
	case serialType == 7:
		return Value{Type: ValueFloat, Float: math.Float64frombits(binary.BigEndian.Uint64(buf))}
	case serialType == 8:
		return Value{Type: ValueInteger, Int: 0}
	case serialType == 9:
		return Value{Type: ValueInteger, Int: 1}
	case serialType%2 == 0:
		return Value{Type: ValueBlob, Bytes: buf}
	default:
		return Value{Type: ValueText, Bytes: buf}
	}
}

// decodeSignedInt sign-extends a big-endian two's complement integer of 1 to 8 bytes.
func decodeSignedInt(buf []byte) int64 {
	var v int64
	if buf[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}
