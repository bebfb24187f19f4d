package probe

import (
	"Go2MemSpectra/internal/model"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeDecodeBatch(t *testing.T) {
	sentAt := time.Date(2024, 5, 6, 7, 8, 9, 1000, time.UTC)
	events := []model.AccessEvent{
		{Addr: 0x7ffd1000, Slot: 0},
		{Addr: 0xffffffffffffffc0, Slot: 3},
		{Addr: 0, Slot: 1},
	}

	data, err := EncodeBatch(events, sentAt)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}
	got, ts, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}

	if !ts.Equal(sentAt) {
		t.Errorf("Expected timestamp %s, got %s", sentAt, ts)
	}
	if len(got) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(got))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Errorf("Event %d: expected %+v, got %+v", i, events[i], got[i])
		}
	}
}

func TestDecodeBatch_UnpackedAndUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, fieldAddr, protowire.VarintType)
	b = protowire.AppendVarint(b, 0x40)
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))
	b = protowire.AppendTag(b, fieldSlot, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)

	got, ts, err := DecodeBatch(b)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if len(got) != 1 || got[0] != (model.AccessEvent{Addr: 0x40, Slot: 2}) {
		t.Errorf("Unexpected events: %+v", got)
	}
	if !ts.IsZero() {
		t.Errorf("Expected zero timestamp, got %s", ts)
	}
}

func TestDecodeBatch_Errors(t *testing.T) {
	var mismatched []byte
	mismatched = protowire.AppendTag(mismatched, fieldAddr, protowire.VarintType)
	mismatched = protowire.AppendVarint(mismatched, 1)
	if _, _, err := DecodeBatch(mismatched); !errors.Is(err, errBatchMismatch) {
		t.Errorf("Expected errBatchMismatch, got %v", err)
	}

	truncated := protowire.AppendTag(nil, fieldAddr, protowire.BytesType)
	truncated = append(truncated, 10, 1)
	if _, _, err := DecodeBatch(truncated); err == nil {
		t.Error("Expected an error for a truncated batch")
	}
}

func TestThreadStartCodec(t *testing.T) {
	slot, err := DecodeThreadStart(EncodeThreadStart(17))
	if err != nil {
		t.Fatalf("DecodeThreadStart failed: %v", err)
	}
	if slot != 17 {
		t.Errorf("Expected slot 17, got %d", slot)
	}

	if slot, err := DecodeThreadStart(nil); err != nil || slot != 0 {
		t.Errorf("Empty message should decode to slot 0, got %d, %v", slot, err)
	}
}
