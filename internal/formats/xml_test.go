package formats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "drivetest/internal/errors"
)

func TestXMLParser_ChildElementsAndAttributes(t *testing.T) {
	content := []byte(`<?xml version="1.0"?>
<log>
  <sample time="2024-05-10T08:00:00Z" cell="7001">
    <rsrp>-92.5</rsrp>
    <sinr>14</sinr>
  </sample>
  <sample time="2024-05-10T08:00:01Z">
    <rsrp>-95</rsrp>
  </sample>
</log>`)

	p := &XMLParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, "2024-05-10T08:00:00Z", records[0].Fields["time"])
	assert.Equal(t, "7001", records[0].Fields["cell"])
	assert.Equal(t, "-92.5", records[0].Fields["rsrp"])
	assert.Equal(t, "14", records[0].Fields["sinr"])
	_, hasCell := records[1].Fields["cell"]
	assert.False(t, hasCell)
}

func TestXMLParser_TruncatedDocumentKeepsParsedSamples(t *testing.T) {
	// The document breaks inside a start tag, which is a hard syntax error
	// rather than a missing end tag the decoder could repair.
	content := []byte(`<log>
  <sample><rsrp>-90</rsrp></sample>
  <sample><rsrp>-91</rsrp></sample>
  <sam`)

	p := &XMLParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, stats.Reasons["truncated_document"])
}

func TestXMLParser_EmptyDocumentIsFatal(t *testing.T) {
	p := &XMLParser{logger: testLogger()}
	_, _, err := p.Parse(context.Background(), []byte(`<log></log>`))
	require.Error(t, err)
	assert.False(t, apperrors.IsRecoverable(err))
}

func TestXMLParser_EmptySampleElementsSkipped(t *testing.T) {
	content := []byte(`<log>
  <sample></sample>
  <sample><rsrp>-90</rsrp></sample>
</log>`)

	p := &XMLParser{logger: testLogger()}
	records, stats, err := p.Parse(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.Reasons["empty_element"])
	// Sample positions count the skipped element.
	assert.Equal(t, 1, records[0].Row)
}
