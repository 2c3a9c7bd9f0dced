package formats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "drivetest/internal/errors"
)

func TestDelimitedParser_BasicCSV(t *testing.T) {
	content := []byte("timestamp,rsrp,sinr\n" +
		"2024-05-10 08:00:00,-90,10\n" +
		"2024-05-10 08:00:01,-91,11\n")

	p := &DelimitedParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, "-90", records[0].Fields["rsrp"])
	assert.Equal(t, "10", records[0].Fields["sinr"])
}

func TestDelimitedParser_PreambleBeforeHeader(t *testing.T) {
	content := []byte("Drive Test Export\n" +
		"timestamp;rsrp;sinr\n" +
		"08:00:00;-90;10\n")

	p := &DelimitedParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.Reasons["preamble_row"])
	// Row numbering counts the preamble and header lines.
	assert.Equal(t, 2, records[0].Row)
}

func TestDelimitedParser_SemicolonDelimiter(t *testing.T) {
	content := []byte("time;rsrp\n08:00:00;-95\n08:00:01;-96\n")

	p := &DelimitedParser{logger: testLogger()}
	records, _, err := p.Parse(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "-95", records[0].Fields["rsrp"])
}

func TestDelimitedParser_RaggedAndEmptyRows(t *testing.T) {
	content := []byte("time,rsrp,sinr\n" +
		"08:00:00,-90,10\n" +
		"08:00:01,-91\n" + // short row: parsed with what it has
		",,\n" + // empty row: skipped
		"08:00:02,-92,12\n")

	p := &DelimitedParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, 1, stats.Reasons["empty_row"])
	_, hasSINR := records[1].Fields["sinr"]
	assert.False(t, hasSINR)
}

func TestDelimitedParser_NoHeaderIsFatal(t *testing.T) {
	content := []byte("1,2,3\n4,5,6\n7,8,9\n")

	p := &DelimitedParser{logger: testLogger()}
	_, _, err := p.Parse(context.Background(), content)
	require.Error(t, err)
	assert.False(t, apperrors.IsRecoverable(err))
}

func TestDelimitedParser_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &DelimitedParser{logger: testLogger()}
	_, _, err := p.Parse(ctx, []byte("a,b\n1,2\n"))
	assert.Error(t, err)
}
