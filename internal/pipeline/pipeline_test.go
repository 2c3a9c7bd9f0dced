package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"drivetest/internal/config"
	apperrors "drivetest/internal/errors"
	"drivetest/internal/export"
	"drivetest/internal/store"
	"drivetest/pkg/contracts/domain"
)

func newTestPipeline(t *testing.T, sink store.Store) *Pipeline {
	t.Helper()
	cfg := config.Default()
	p, err := New(&cfg, sink, nil)
	require.NoError(t, err)
	return p
}

// driveCSV builds a delimited log: healthy records with a weak-RSRP stretch.
func driveCSV(total, weakFrom, weakTo int) string {
	var sb strings.Builder
	sb.WriteString("timestamp,lat,lon,rsrp,rsrq,sinr,cell_id\n")
	for i := 0; i < total; i++ {
		rsrp := -85.0
		if i >= weakFrom && i < weakTo {
			rsrp = -110.0
		}
		fmt.Fprintf(&sb, "2024-05-10 08:%02d:%02d,33.31%04d,44.36%04d,%.1f,-10.0,12.0,cell-1\n",
			i/60, i%60, i, i, rsrp)
	}
	return sb.String()
}

func TestRun_EndToEndCoverageScenario(t *testing.T) {
	// 100 records with 10 consecutive weak samples.
	content := []byte(driveCSV(100, 40, 50))

	p := newTestPipeline(t, nil)
	result, err := p.Run(context.Background(), content, "route.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.FormatCSV, result.Dataset.Format)
	assert.Equal(t, 100, result.Dataset.Len())
	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, "route.csv", result.Session.Filename)
	assert.False(t, result.Session.StartTime.IsZero())

	var coverage []domain.Issue
	for _, issue := range result.Report.Issues {
		if issue.Category == domain.CategoryCoverage {
			coverage = append(coverage, issue)
		}
	}
	require.Len(t, coverage, 1)
	assert.Len(t, coverage[0].SupportingRecords, 10)
}

func TestRun_UnrecognizedFormatIsFatal(t *testing.T) {
	// Printable text with no header, no key/value shape, no XML and no
	// consistent delimiter.
	content := []byte("lorem ipsum dolor sit amet\nthe quick brown fox\njumps over nothing here\n")

	p := newTestPipeline(t, nil)
	result, err := p.Run(context.Background(), content, "mystery.bin")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrUnrecognizedFormat)
}

func TestRun_ConservationInvariant(t *testing.T) {
	content := []byte("timestamp,rsrp,sinr\n" +
		"2024-05-10 08:00:00,-90,10\n" +
		"2024-05-10 08:00:01,-999,999\n" + // all signals out of range: rejected
		"garbage line without delimiter\n" +
		"2024-05-10 08:00:02,-95,8\n")

	p := newTestPipeline(t, nil)
	result, err := p.Run(context.Background(), content, "route.csv")
	require.NoError(t, err)

	// The garbage line still parses as a one-cell row; it is rejected at
	// standardization for carrying nothing usable.
	v := result.Dataset.Validation
	assert.Equal(t, v.RowsParsed, v.Accepted+v.Rejected)
	assert.Equal(t, 2, v.Accepted)
	assert.Equal(t, 2, v.Rejected)
}

func TestRun_RoundTripIdempotence(t *testing.T) {
	content := []byte(driveCSV(30, 5, 12))

	p := newTestPipeline(t, nil)
	first, err := p.Run(context.Background(), content, "route.csv")
	require.NoError(t, err)

	// Export the standardized dataset as canonical CSV and run it through
	// the pipeline again.
	var buf bytes.Buffer
	require.NoError(t, export.NewCSVWriter(nil).Write(&buf, first.Dataset))

	second, err := p.Run(context.Background(), buf.Bytes(), "route-canonical.csv")
	require.NoError(t, err)

	require.Equal(t, first.Dataset.Len(), second.Dataset.Len())
	for i := range first.Dataset.Records {
		a := first.Dataset.Records[i]
		b := second.Dataset.Records[i]
		a.SourceRow, b.SourceRow = 0, 0 // row numbering differs between files
		assert.Equal(t, a, b, "record %d changed across the round trip", i)
	}
}

func TestRun_PersistsToStore(t *testing.T) {
	st, err := store.NewSQLiteStore(t.TempDir()+"/dt.db", nil)
	require.NoError(t, err)
	defer st.Close()

	p := newTestPipeline(t, st)
	result, err := p.Run(context.Background(), []byte(driveCSV(50, 10, 20)), "route.csv")
	require.NoError(t, err)

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, result.Session.ID, sessions[0].ID)

	saved, err := st.GetReport(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, len(result.Report.Issues), len(saved.Issues))
}

type failingStore struct{ store.NopStore }

func (failingStore) SaveSession(context.Context, *domain.DriveTestSession) error {
	return errors.New("disk full")
}

func TestRun_StoreFailureDoesNotFailRun(t *testing.T) {
	p := newTestPipeline(t, failingStore{})
	result, err := p.Run(context.Background(), []byte(driveCSV(50, 10, 20)), "route.csv")
	require.NoError(t, err)
	assert.NotNil(t, result.Report)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, nil)
	result, err := p.Run(ctx, []byte(driveCSV(100, 0, 0)), "route.csv")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Coverage.MinRunLength = -1

	_, err := New(&cfg, nil, nil)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
}

// buildTRP encodes n records in the binary trace framing: magic, version,
// then length-prefixed fixed-layout payloads.
func buildTRP(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("TEMSTRP\x00")
	buf.Write([]byte{1, 0}) // version 1, little endian

	for i := 0; i < n; i++ {
		payload := make([]byte, 53)
		binary.LittleEndian.PutUint64(payload[0:8], uint64(1715328000000+int64(i)*1000))
		binary.LittleEndian.PutUint64(payload[8:16], math.Float64bits(33.31+float64(i)*0.0001))
		binary.LittleEndian.PutUint64(payload[16:24], math.Float64bits(44.36))
		binary.LittleEndian.PutUint64(payload[24:32], math.Float64bits(-92.5))
		binary.LittleEndian.PutUint64(payload[32:40], math.Float64bits(-11))
		binary.LittleEndian.PutUint64(payload[40:48], math.Float64bits(14))
		binary.LittleEndian.PutUint32(payload[48:52], 7001)
		payload[52] = 0

		var length [2]byte
		binary.LittleEndian.PutUint16(length[:], uint16(len(payload)))
		buf.Write(length[:])
		buf.Write(payload)
	}
	return buf.Bytes()
}

func TestRun_TRPBinaryEndToEnd(t *testing.T) {
	content := buildTRP(t, 20)

	p := newTestPipeline(t, nil)
	result, err := p.Run(context.Background(), content, "session.trp")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatTRP, result.Dataset.Format)
	assert.Equal(t, 20, result.Dataset.Len())
}

func TestRun_StageSpansAreSiblingsOfRunSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p := newTestPipeline(t, nil)
	_, err := p.Run(context.Background(), []byte(driveCSV(20, 5, 10)), "route.csv")
	require.NoError(t, err)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	run, ok := spans["pipeline.Run"]
	require.True(t, ok)

	for _, name := range []string{"pipeline.detect", "pipeline.parse", "pipeline.standardize", "pipeline.aggregate"} {
		stage, ok := spans[name]
		require.True(t, ok, "missing span %s", name)
		assert.Equal(t, run.SpanContext().SpanID(), stage.Parent().SpanID(),
			"%s should be a direct child of the run span", name)
	}
}
