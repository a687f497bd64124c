package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// byteOrderMarks maps a leading BOM to the decoder for the rest of the stream.
var byteOrderMarks = []struct {
	mark     []byte
	encoding encoding.Encoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, unicode.UTF8BOM},
	{[]byte{0xFF, 0xFE}, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{[]byte{0xFE, 0xFF}, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
}

// Bank exports without a BOM that are not UTF-8 are almost always one of these.
var legacyCharmaps = []encoding.Encoding{charmap.Windows1252, charmap.ISO8859_1}

// ExtractTXT decodes plain text exports and normalises their line structure.
func ExtractTXT(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty text file")
	}

	decoded, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file: %w", err)
	}

	text := cleanText(decoded)
	if text == "" {
		return "", errors.New("no text could be extracted from file")
	}
	return text, nil
}

func decodeText(data []byte) (string, error) {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(data, bom.mark) {
			out, _, err := transform.Bytes(bom.encoding.NewDecoder(), data)
			if err != nil {
				return "", err
			}
			return string(out), nil
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, enc := range legacyCharmaps {
		if out, _, err := transform.Bytes(enc.NewDecoder(), data); err == nil {
			return string(out), nil
		}
	}
	return string(data), nil
}

// cleanText unifies line endings, drops NUL bytes and blank lines, and trims
// every line. Line boundaries are kept; statement parsing depends on them.
func cleanText(text string) string {
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\x00", "").Replace(text)

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// ValidateTXT sniffs unlabelled uploads: valid UTF-8, or a sample that is
// at least 80% printable ASCII, counts as text.
func ValidateTXT(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty file")
	}

	sample := data[:min(len(data), 512)]
	if utf8.Valid(sample) && !bytes.ContainsRune(sample, 0) {
		return nil
	}

	printable := 0
	for _, b := range sample {
		if (b >= 32 && b <= 126) || b == '\t' || b == '\n' || b == '\r' {
			printable++
		}
	}
	if float64(printable)/float64(len(sample)) < 0.8 {
		return errors.New("file does not appear to be valid text")
	}
	return nil
}
