package dpos

import (
	"bytes"
	"fmt"

	"github.com/jackpal/bencode-go"
)

// The schedule crosses the consensus boundary as bytes. Bencode dictionaries
// have exactly one encoding (keys sorted, lengths explicit), so every node
// packs an identical schedule to identical bytes.

type packedSchedule struct {
	Producers []ScheduleEntry `bencode:"producers"`
}

// PackSchedule encodes a proposed schedule canonically.
func PackSchedule(schedule []ScheduleEntry) ([]byte, error) {
	var buf bytes.Buffer
	err := bencode.Marshal(&buf, packedSchedule{Producers: schedule})
	if err != nil {
		return nil, fmt.Errorf("failed to pack schedule: %s", err)
	}
	return buf.Bytes(), nil
}

// UnpackSchedule decodes a schedule packed by PackSchedule.
func UnpackSchedule(data []byte) ([]ScheduleEntry, error) {
	var packed packedSchedule
	err := bencode.Unmarshal(bytes.NewReader(data), &packed)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack schedule: %s", err)
	}
	return packed.Producers, nil
}
