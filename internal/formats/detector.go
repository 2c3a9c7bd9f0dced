package formats

import (
	"bytes"
	"path/filepath"
	"strings"

	"drivetest/internal/errors"
	"drivetest/pkg/contracts/domain"
)

var (
	trpMagic = []byte("TEMSTRP\x00")
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// sniffLines is how many non-empty lines the delimiter and text sniffers vote
// over.
const sniffLines = 10

// Detect inspects raw file content and returns exactly one format tag.
// Detection is a pure function of the input bytes; the filename hint only
// breaks ties between the delimited and generic-text interpretations and can
// never override what the content says.
func Detect(content []byte, filename string) (domain.FormatTag, error) {
	if len(content) == 0 {
		return "", errors.NewFormatError("empty input")
	}

	// 1. Proprietary binary trace signature.
	if bytes.HasPrefix(content, trpMagic) {
		return domain.FormatTRP, nil
	}

	// 2. Markup sniff.
	if looksLikeXML(content) {
		return domain.FormatXML, nil
	}

	// 3. Spreadsheet container signatures (xlsx zip, legacy xls OLE).
	if bytes.HasPrefix(content, zipMagic) || bytes.HasPrefix(content, oleMagic) {
		return domain.FormatExcel, nil
	}

	if !printableText(content) {
		return "", errors.NewFormatError("binary content with no known signature")
	}

	lines := sampleLines(content, sniffLines)

	// 4. Delimiter majority vote.
	if _, ok := SniffDelimiter(lines); ok {
		return domain.FormatCSV, nil
	}

	// 5. Generic line-oriented text with key/value structure.
	if looksLikeKeyValue(lines) {
		return domain.FormatText, nil
	}

	// Extension as a weak tiebreak for degenerate single-column content.
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return domain.FormatCSV, nil
	case ".log", ".txt":
		if looksLikeMeasurementText(lines) {
			return domain.FormatText, nil
		}
	}

	return "", errors.NewFormatError("no recognizable header, markup or binary signature")
}

// SniffDelimiter votes over the sampled lines and returns the winning
// delimiter. A delimiter wins when it appears at least once in a majority of
// lines and splits them into at least two fields.
func SniffDelimiter(lines []string) (rune, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	candidates := []rune{',', '\t', ';'}
	best := rune(0)
	bestVotes := 0
	for _, d := range candidates {
		votes := 0
		for _, line := range lines {
			if strings.Count(line, string(d)) >= 1 {
				votes++
			}
		}
		if votes > bestVotes {
			best, bestVotes = d, votes
		}
	}
	if bestVotes*2 > len(lines) {
		return best, true
	}
	return 0, false
}

func sampleLines(content []byte, n int) []string {
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

func looksLikeXML(content []byte) bool {
	trimmed := bytes.TrimLeft(content, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return true
	}
	// A root tag starting with a letter is enough; HTML-ish inputs still
	// parse as markup rather than being misread as delimited text.
	if len(trimmed) > 1 && trimmed[0] == '<' {
		c := trimmed[1]
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	return false
}

// printableText reports whether the content is plausibly text: no NUL bytes
// and a low share of control characters in the first KB.
func printableText(content []byte) bool {
	sample := content
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	control := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			control++
		}
	}
	return control*20 < len(sample)
}

func looksLikeKeyValue(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	hits := 0
	for _, line := range lines {
		if kvKey(line) != "" {
			hits++
		}
	}
	return hits*2 > len(lines)
}

// looksLikeMeasurementText accepts extension-hinted .log/.txt files whose
// lines at least resemble token streams rather than prose.
func looksLikeMeasurementText(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if strings.ContainsAny(line, "=:") {
			return true
		}
	}
	return false
}

// kvKey extracts the key of a "key=value" or "key: value" line, or "" when
// the line has no such structure.
func kvKey(line string) string {
	if i := strings.Index(line, "="); i > 0 {
		return strings.TrimSpace(line[:i])
	}
	if i := strings.Index(line, ":"); i > 0 {
		// Avoid treating "12:30:05" timestamps as key/value pairs.
		key := strings.TrimSpace(line[:i])
		if key != "" && !isDigits(key) {
			return key
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
