// Package wire implements the length-prefixed map/array binary framing
// layer of §6. It is deliberately narrow: it supports exactly the value
// kinds the sync protocol needs (nil, bool, signed/unsigned integers,
// strings/bytes, arrays, maps) rather than a general-purpose
// self-describing format, mirroring the original implementation's own
// minimal Packer/Unpacker.
package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/rowsync/rowsync/pkg/xerror"
)

type tag byte

const (
	tagNil    tag = 0x00
	tagFalse  tag = 0x01
	tagTrue   tag = 0x02
	tagInt    tag = 0x03
	tagUint   tag = 0x04
	tagString tag = 0x05
	tagBytes  tag = 0x06
	tagArray  tag = 0x07
	tagMap    tag = 0x08
)

// Packer writes framed verb replies and row frames to an underlying
// stream, matching the original's Packer<FDWriteStream> role.
type Packer struct {
	w *bufio.Writer
}

// NewPacker wraps w for framed writes.
func NewPacker(w io.Writer) *Packer {
	return &Packer{w: bufio.NewWriter(w)}
}

// PackFrame writes one top-level array frame: [values[0], values[1], ...].
// Every verb reply is exactly one PackFrame call (§6); the caller is
// responsible for calling Flush once the verb's replies are complete.
func (p *Packer) PackFrame(values ...interface{}) error {
	return p.packValue(values)
}

// PackRowFrame writes one top-level array frame holding row's own
// columns: [row[0], row[1], ...]. It must be used instead of PackFrame
// for ROWS-stream rows — passing a NullableRow to PackFrame's variadic
// values collects it as a single argument, nesting it inside an extra
// array level instead of emitting the flat per-row frame §4.3 expects.
// A zero-length row terminates the stream with a true zero-length array.
func (p *Packer) PackRowFrame(row NullableRow) error {
	return p.packValue(row)
}

// Flush pushes buffered bytes to the underlying writer. The engine flushes
// after every verb (§4.3).
func (p *Packer) Flush() error {
	return p.w.Flush()
}

func (p *Packer) packValue(v interface{}) error {
	switch x := v.(type) {
	case nil:
		return p.writeTag(tagNil)
	case bool:
		if x {
			return p.writeTag(tagTrue)
		}
		return p.writeTag(tagFalse)
	case int:
		return p.packInt(int64(x))
	case int64:
		return p.packInt(x)
	case uint64:
		return p.packUint(x)
	case string:
		return p.packString(x)
	case []byte:
		return p.packBytes(x)
	case ColumnValues:
		return p.packArray(len(x), func(i int) interface{} { return x[i] })
	case NullableRow:
		return p.packArray(len(x), func(i int) interface{} {
			if x[i].Null {
				return nil
			}
			return x[i].Value
		})
	case []interface{}:
		return p.packArray(len(x), func(i int) interface{} { return x[i] })
	case map[string]interface{}:
		return p.packMap(x)
	default:
		return xerror.Errorf(xerror.Protocol, "wire: cannot pack value of type %T", v)
	}
}

func (p *Packer) writeTag(t tag) error {
	return p.w.WriteByte(byte(t))
}

func (p *Packer) packInt(n int64) error {
	if err := p.writeTag(tagInt); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	_, err := p.w.Write(buf[:])
	return err
}

func (p *Packer) packUint(n uint64) error {
	if err := p.writeTag(tagUint); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	_, err := p.w.Write(buf[:])
	return err
}

func (p *Packer) packString(s string) error {
	if err := p.writeTag(tagString); err != nil {
		return err
	}
	return p.packLengthPrefixed([]byte(s))
}

func (p *Packer) packBytes(b []byte) error {
	if err := p.writeTag(tagBytes); err != nil {
		return err
	}
	return p.packLengthPrefixed(b)
}

func (p *Packer) packLengthPrefixed(b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := p.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := p.w.Write(b)
	return err
}

func (p *Packer) packArray(n int, at func(i int) interface{}) error {
	if err := p.writeTag(tagArray); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(n))
	if _, err := p.w.Write(lenBuf[:]); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := p.packValue(at(i)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packer) packMap(m map[string]interface{}) error {
	if err := p.writeTag(tagMap); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(m)))
	if _, err := p.w.Write(lenBuf[:]); err != nil {
		return err
	}
	for k, v := range m {
		if err := p.packString(k); err != nil {
			return err
		}
		if err := p.packValue(v); err != nil {
			return err
		}
	}
	return nil
}

// Unpacker reads framed verbs/replies from an underlying stream, matching
// the original's Unpacker<FDReadStream> role.
type Unpacker struct {
	r *bufio.Reader
}

// NewUnpacker wraps r for framed reads.
func NewUnpacker(r io.Reader) *Unpacker {
	return &Unpacker{r: bufio.NewReader(r)}
}

// UnpackFrame reads one top-level array frame and returns its elements.
// Each element is nil, bool, int64, uint64, string, []byte, []interface{},
// or map[string]interface{}.
func (u *Unpacker) UnpackFrame() ([]interface{}, error) {
	v, err := u.unpackValue()
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, xerror.Errorf(xerror.Protocol, "wire: expected top-level array frame, got %T", v)
	}
	return arr, nil
}

func (u *Unpacker) unpackValue() (interface{}, error) {
	b, err := u.r.ReadByte()
	if err != nil {
		return nil, xerror.Wrap(err, xerror.Protocol, "wire: truncated frame")
	}
	switch tag(b) {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt:
		var buf [8]byte
		if _, err := io.ReadFull(u.r, buf[:]); err != nil {
			return nil, xerror.Wrap(err, xerror.Protocol, "wire: truncated int")
		}
		return int64(binary.BigEndian.Uint64(buf[:])), nil
	case tagUint:
		var buf [8]byte
		if _, err := io.ReadFull(u.r, buf[:]); err != nil {
			return nil, xerror.Wrap(err, xerror.Protocol, "wire: truncated uint")
		}
		return binary.BigEndian.Uint64(buf[:]), nil
	case tagString:
		b, err := u.readLengthPrefixed()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBytes:
		return u.readLengthPrefixed()
	case tagArray:
		n, err := u.readLength()
		if err != nil {
			return nil, err
		}
		arr := make([]interface{}, n)
		for i := range arr {
			v, err := u.unpackValue()
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case tagMap:
		n, err := u.readLength()
		if err != nil {
			return nil, err
		}
		m := make(map[string]interface{}, n)
		for i := 0; i < n; i++ {
			k, err := u.unpackValue()
			if err != nil {
				return nil, err
			}
			key, ok := k.(string)
			if !ok {
				return nil, xerror.Errorf(xerror.Protocol, "wire: map key is not a string")
			}
			v, err := u.unpackValue()
			if err != nil {
				return nil, err
			}
			m[key] = v
		}
		return m, nil
	default:
		return nil, xerror.Errorf(xerror.Protocol, "wire: unknown tag 0x%02x", b)
	}
}

func (u *Unpacker) readLength() (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(u.r, buf[:]); err != nil {
		return 0, xerror.Wrap(err, xerror.Protocol, "wire: truncated length")
	}
	return int(binary.BigEndian.Uint32(buf[:])), nil
}

func (u *Unpacker) readLengthPrefixed() ([]byte, error) {
	n, err := u.readLength()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(u.r, buf); err != nil {
		return nil, xerror.Wrap(err, xerror.Protocol, "wire: truncated payload")
	}
	return buf, nil
}

// ArgString extracts a string from a decoded frame argument, erroring with
// a CommandError-category message naming the offending position if it is
// not a string — matching §7's "argument parse failure is fatal" rule.
func ArgString(args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", xerror.Errorf(xerror.Command, "wire: missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", xerror.Errorf(xerror.Command, "wire: argument %d is %T, want string", i, args[i])
	}
	return s, nil
}

// ArgColumnValues extracts a ColumnValues (array of strings) from a
// decoded frame argument.
func ArgColumnValues(args []interface{}, i int) (ColumnValues, error) {
	if i >= len(args) {
		return nil, xerror.Errorf(xerror.Command, "wire: missing argument %d", i)
	}
	arr, ok := args[i].([]interface{})
	if !ok {
		return nil, xerror.Errorf(xerror.Command, "wire: argument %d is %T, want array", i, args[i])
	}
	cv := make(ColumnValues, len(arr))
	for j, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, xerror.Errorf(xerror.Command, "wire: argument %d[%d] is %T, want string", i, j, v)
		}
		cv[j] = s
	}
	return cv, nil
}

// ArgInt64 extracts an int64 from a decoded frame argument, accepting
// either wire integer kind.
func ArgInt64(args []interface{}, i int) (int64, error) {
	if i >= len(args) {
		return 0, xerror.Errorf(xerror.Command, "wire: missing argument %d", i)
	}
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	default:
		return 0, xerror.Errorf(xerror.Command, "wire: argument %d is %T, want integer", i, args[i])
	}
}

// ArgBytes extracts a []byte from a decoded frame argument.
func ArgBytes(args []interface{}, i int) ([]byte, error) {
	if i >= len(args) {
		return nil, xerror.Errorf(xerror.Command, "wire: missing argument %d", i)
	}
	b, ok := args[i].([]byte)
	if !ok {
		return nil, xerror.Errorf(xerror.Command, "wire: argument %d is %T, want bytes", i, args[i])
	}
	return b, nil
}

// FrameToNullableRow interprets a decoded row frame (an array of
// string-or-nil) as a NullableRow.
func FrameToNullableRow(arr []interface{}) (NullableRow, error) {
	row := make(NullableRow, len(arr))
	for i, v := range arr {
		switch x := v.(type) {
		case nil:
			row[i] = NullableValue{Null: true}
		case string:
			row[i] = NullableValue{Value: x}
		default:
			return nil, xerror.Errorf(xerror.Protocol, "wire: row column %d is %T, want string or nil", i, v)
		}
	}
	return row, nil
}
