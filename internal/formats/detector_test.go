package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     domain.FormatTag
		wantErr  bool
	}{
		{
			name:    "trp magic",
			content: append([]byte("TEMSTRP\x00"), 0x01, 0x00),
			want:    domain.FormatTRP,
		},
		{
			name:    "xml declaration",
			content: []byte("<?xml version=\"1.0\"?>\n<log></log>"),
			want:    domain.FormatXML,
		},
		{
			name:    "bare root tag",
			content: []byte("<measurements>\n</measurements>"),
			want:    domain.FormatXML,
		},
		{
			name:    "xlsx zip container",
			content: []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00},
			want:    domain.FormatExcel,
		},
		{
			name:    "legacy xls ole container",
			content: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00},
			want:    domain.FormatExcel,
		},
		{
			name:    "comma delimited",
			content: []byte("time,rsrp,sinr\n08:00:00,-90,10\n08:00:01,-91,11\n"),
			want:    domain.FormatCSV,
		},
		{
			name:    "tab delimited",
			content: []byte("time\trsrp\tsinr\n08:00:00\t-90\t10\n08:00:01\t-91\t11\n"),
			want:    domain.FormatCSV,
		},
		{
			name:    "key value text",
			content: []byte("Time = 08:00:00\nRSRP = -95\nSINR = 7\n\nTime = 08:00:01\nRSRP = -96\n"),
			want:    domain.FormatText,
		},
		{
			name:     "wrong extension cannot override content",
			content:  []byte("time,rsrp,sinr\n08:00:00,-90,10\n08:00:01,-91,11\n"),
			filename: "export.txt",
			want:     domain.FormatCSV,
		},
		{
			name:     "extension tiebreak for degenerate log",
			content:  []byte("0800: -90\n0801: -91\n"), // digit-only keys defeat the kv sniff
			filename: "trace.log",
			want:     domain.FormatText,
		},
		{
			name:    "degenerate log without extension hint",
			content: []byte("0800: -90\n0801: -91\n"),
			wantErr: true,
		},
		{
			name:    "empty input",
			content: nil,
			wantErr: true,
		},
		{
			name:    "unknown binary",
			content: []byte{0x00, 0x01, 0x02, 0x03, 0xFF},
			wantErr: true,
		},
		{
			name:    "ambiguous prose",
			content: []byte("lorem ipsum dolor sit amet\nthe quick brown fox\njumps over nothing here\n"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.content, tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrUnrecognizedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  rune
		ok    bool
	}{
		{
			name:  "comma majority",
			lines: []string{"a,b,c", "1,2,3", "4,5,6"},
			want:  ',', ok: true,
		},
		{
			name:  "semicolon majority",
			lines: []string{"a;b", "1;2", "3;4"},
			want:  ';', ok: true,
		},
		{
			name:  "no majority",
			lines: []string{"a,b", "c;d", "plain", "more plain"},
			ok:    false,
		},
		{
			name:  "empty",
			lines: nil,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SniffDelimiter(tt.lines)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
