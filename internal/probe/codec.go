package probe

import (
	"Go2MemSpectra/internal/model"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Wire layout of an access batch (protobuf wire format):
//
//	message AccessBatch {
//	  repeated uint64 addr = 1 [packed = true];
//	  repeated uint32 slot = 2 [packed = true];
//	  google.protobuf.Timestamp sent_at = 3;
//	}
//
//	message ThreadStart { uint32 slot = 1; }
const (
	fieldAddr   protowire.Number = 1
	fieldSlot   protowire.Number = 2
	fieldSentAt protowire.Number = 3

	fieldThreadSlot protowire.Number = 1
)

var errBatchMismatch = errors.New("access batch has different numbers of addresses and slots")

// EncodeBatch serializes a batch of access events.
func EncodeBatch(events []model.AccessEvent, sentAt time.Time) ([]byte, error) {
	var addrs, slots []byte
	for _, ev := range events {
		addrs = protowire.AppendVarint(addrs, ev.Addr)
		slots = protowire.AppendVarint(slots, uint64(ev.Slot))
	}

	ts, err := proto.Marshal(timestamppb.New(sentAt))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch timestamp: %w", err)
	}

	b := make([]byte, 0, len(addrs)+len(slots)+len(ts)+16)
	b = protowire.AppendTag(b, fieldAddr, protowire.BytesType)
	b = protowire.AppendBytes(b, addrs)
	b = protowire.AppendTag(b, fieldSlot, protowire.BytesType)
	b = protowire.AppendBytes(b, slots)
	b = protowire.AppendTag(b, fieldSentAt, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b, nil
}

// DecodeBatch parses a batch produced by EncodeBatch. Unpacked repeated fields and unknown
// fields are accepted as protobuf decoders do.
func DecodeBatch(b []byte) ([]model.AccessEvent, time.Time, error) {
	var addrs, slots []uint64
	var sentAt time.Time

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, time.Time{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case (num == fieldAddr || num == fieldSlot) && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, time.Time{}, protowire.ParseError(n)
			}
			b = b[n:]
			vals, err := consumePacked(packed)
			if err != nil {
				return nil, time.Time{}, err
			}
			if num == fieldAddr {
				addrs = append(addrs, vals...)
			} else {
				slots = append(slots, vals...)
			}
		case (num == fieldAddr || num == fieldSlot) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, time.Time{}, protowire.ParseError(n)
			}
			b = b[n:]
			if num == fieldAddr {
				addrs = append(addrs, v)
			} else {
				slots = append(slots, v)
			}
		case num == fieldSentAt && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, time.Time{}, protowire.ParseError(n)
			}
			b = b[n:]
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(raw, &ts); err != nil {
				return nil, time.Time{}, fmt.Errorf("failed to unmarshal batch timestamp: %w", err)
			}
			sentAt = ts.AsTime()
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, time.Time{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	if len(addrs) != len(slots) {
		return nil, time.Time{}, fmt.Errorf("%w: %d addresses, %d slots", errBatchMismatch, len(addrs), len(slots))
	}
	events := make([]model.AccessEvent, len(addrs))
	for i := range addrs {
		events[i] = model.AccessEvent{Addr: addrs[i], Slot: uint32(slots[i])}
	}
	return events, sentAt, nil
}

func consumePacked(b []byte) ([]uint64, error) {
	var vals []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		vals = append(vals, v)
		b = b[n:]
	}
	return vals, nil
}

// EncodeThreadStart serializes a thread start notification.
func EncodeThreadStart(slot uint32) []byte {
	b := protowire.AppendTag(nil, fieldThreadSlot, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(slot))
}

// DecodeThreadStart parses a message produced by EncodeThreadStart.
func DecodeThreadStart(b []byte) (uint32, error) {
	var slot uint64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		b = b[n:]
		if num == fieldThreadSlot && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			slot = v
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return uint32(slot), nil
}
