package proto

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Message types.
const (
	MsgJob     byte = 0x01
	MsgOutcome byte = 0x02
)

// JobMsg is the wire form of one copy job.
type JobMsg struct {
	Src       string `msg:"src"`
	Dst       string `msg:"dst"`
	Overwrite bool   `msg:"overwrite"`
	Verify    bool   `msg:"verify"`
}

// OutcomeMsg is the wire form of one job's result.
type OutcomeMsg struct {
	Src   string `msg:"src"`
	Dst   string `msg:"dst"`
	OK    bool   `msg:"ok"`
	Skip  uint8  `msg:"skip"`
	Bytes int64  `msg:"bytes"`
	Err   string `msg:"err"`
}

// Msgsize returns an upper bound on the encoded size.
func (z *JobMsg) Msgsize() int {
	return msgp.MapHeaderSize +
		msgp.StringPrefixSize + 3 + msgp.StringPrefixSize + len(z.Src) +
		msgp.StringPrefixSize + 3 + msgp.StringPrefixSize + len(z.Dst) +
		msgp.StringPrefixSize + 9 + msgp.BoolSize +
		msgp.StringPrefixSize + 6 + msgp.BoolSize
}

// MarshalMsg appends the MessagePack encoding of z to b.
func (z *JobMsg) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "src")
	o = msgp.AppendString(o, z.Src)
	o = msgp.AppendString(o, "dst")
	o = msgp.AppendString(o, z.Dst)
	o = msgp.AppendString(o, "overwrite")
	o = msgp.AppendBool(o, z.Overwrite)
	o = msgp.AppendString(o, "verify")
	o = msgp.AppendBool(o, z.Verify)
	return o, nil
}

// UnmarshalMsg decodes z from bts and returns the remaining bytes. Unknown
// keys are skipped.
func (z *JobMsg) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err)
	}
	var field []byte
	for ; n > 0; n-- {
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return bts, msgp.WrapError(err)
		}
		switch string(field) {
		case "src":
			z.Src, bts, err = msgp.ReadStringBytes(bts)
		case "dst":
			z.Dst, bts, err = msgp.ReadStringBytes(bts)
		case "overwrite":
			z.Overwrite, bts, err = msgp.ReadBoolBytes(bts)
		case "verify":
			z.Verify, bts, err = msgp.ReadBoolBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, msgp.WrapError(err, string(field))
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound on the encoded size.
func (z *OutcomeMsg) Msgsize() int {
	return msgp.MapHeaderSize +
		msgp.StringPrefixSize + 3 + msgp.StringPrefixSize + len(z.Src) +
		msgp.StringPrefixSize + 3 + msgp.StringPrefixSize + len(z.Dst) +
		msgp.StringPrefixSize + 2 + msgp.BoolSize +
		msgp.StringPrefixSize + 4 + msgp.Uint8Size +
		msgp.StringPrefixSize + 5 + msgp.Int64Size +
		msgp.StringPrefixSize + 3 + msgp.StringPrefixSize + len(z.Err)
}

// MarshalMsg appends the MessagePack encoding of z to b.
func (z *OutcomeMsg) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 6)
	o = msgp.AppendString(o, "src")
	o = msgp.AppendString(o, z.Src)
	o = msgp.AppendString(o, "dst")
	o = msgp.AppendString(o, z.Dst)
	o = msgp.AppendString(o, "ok")
	o = msgp.AppendBool(o, z.OK)
	o = msgp.AppendString(o, "skip")
	o = msgp.AppendUint8(o, z.Skip)
	o = msgp.AppendString(o, "bytes")
	o = msgp.AppendInt64(o, z.Bytes)
	o = msgp.AppendString(o, "err")
	o = msgp.AppendString(o, z.Err)
	return o, nil
}

// UnmarshalMsg decodes z from bts and returns the remaining bytes. Unknown
// keys are skipped.
func (z *OutcomeMsg) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, msgp.WrapError(err)
	}
	var field []byte
	for ; n > 0; n-- {
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return bts, msgp.WrapError(err)
		}
		switch string(field) {
		case "src":
			z.Src, bts, err = msgp.ReadStringBytes(bts)
		case "dst":
			z.Dst, bts, err = msgp.ReadStringBytes(bts)
		case "ok":
			z.OK, bts, err = msgp.ReadBoolBytes(bts)
		case "skip":
			z.Skip, bts, err = msgp.ReadUint8Bytes(bts)
		case "bytes":
			z.Bytes, bts, err = msgp.ReadInt64Bytes(bts)
		case "err":
			z.Err, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, msgp.WrapError(err, string(field))
		}
	}
	return bts, nil
}

// marshaler is what every message in this package implements.
type marshaler interface {
	MarshalMsg(b []byte) ([]byte, error)
}

// writeMsg encodes msg and writes it as a single frame.
func writeMsg(w interface{ Write([]byte) (int, error) }, msgType byte, msg marshaler) error {
	payload, err := msg.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("marshal message 0x%02x: %w", msgType, err)
	}
	return WriteFrame(w, Frame{MsgType: msgType, Payload: payload})
}
