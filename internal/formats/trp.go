package formats

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"strconv"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

// TRP trace framing: an 8-byte magic and a little-endian uint16 version,
// followed by length-prefixed records. Each record payload is a fixed layout
// of little-endian fields; the length prefix lets newer traces append fields
// that older readers skip. Absent metric values are encoded as NaN.
const (
	trpHeaderLen        = 10 // magic + version
	trpRecordPayloadLen = 53 // ts(8) lat(8) lon(8) rsrp(8) rsrq(8) sinr(8) cell(4) event(1)
)

// TRPParser reads the proprietary binary trace format. It assumes no text
// encoding: records are decoded straight from the length-delimited binary
// layout, and a truncated trailing record is skipped, not fatal.
type TRPParser struct {
	logger *slog.Logger
}

// Format implements Parser.
func (p *TRPParser) Format() domain.FormatTag { return domain.FormatTRP }

// Parse implements Parser.
func (p *TRPParser) Parse(ctx context.Context, data []byte) ([]domain.RawRecord, ParseStats, error) {
	var stats ParseStats

	if len(data) < trpHeaderLen || string(data[:len(trpMagic)]) != string(trpMagic) {
		return nil, stats, errors.NewParseError(string(domain.FormatTRP), "missing trace header", false, nil)
	}
	version := binary.LittleEndian.Uint16(data[len(trpMagic):trpHeaderLen])

	var records []domain.RawRecord
	off := trpHeaderLen
	frame := -1 // zero-based frame position, counting skipped frames
	for off < len(data) {
		frame++
		if err := cancelled(ctx, stats.Rows); err != nil {
			return nil, stats, err
		}
		if off+2 > len(data) {
			stats.skip("truncated_record")
			break
		}
		payloadLen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+payloadLen > len(data) {
			stats.skip("truncated_record")
			break
		}
		payload := data[off : off+payloadLen]
		off += payloadLen

		if payloadLen < trpRecordPayloadLen {
			stats.skip("short_record")
			continue
		}

		fields := decodeTRPRecord(payload)
		if len(fields) == 0 {
			stats.skip("empty_record")
			continue
		}
		records = append(records, domain.RawRecord{Row: frame, Fields: fields})
		stats.Rows++
	}

	p.logger.Debug("trp parse complete",
		slog.Int("version", int(version)),
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped))

	return records, stats, nil
}

func decodeTRPRecord(payload []byte) map[string]string {
	fields := make(map[string]string, 8)

	ts := int64(binary.LittleEndian.Uint64(payload[0:8]))
	if ts > 0 {
		fields["timestamp_ms"] = strconv.FormatInt(ts, 10)
	}

	putFloat := func(name string, off int) {
		v := math.Float64frombits(binary.LittleEndian.Uint64(payload[off : off+8]))
		if !math.IsNaN(v) {
			fields[name] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	putFloat("lat", 8)
	putFloat("lon", 16)
	putFloat("rsrp", 24)
	putFloat("rsrq", 32)
	putFloat("sinr", 40)

	if cell := binary.LittleEndian.Uint32(payload[48:52]); cell != 0 {
		fields["cell_id"] = strconv.FormatUint(uint64(cell), 10)
	}
	fields["event_code"] = strconv.Itoa(int(payload[52]))

	return fields
}
