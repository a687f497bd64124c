package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Business Name: Acme Inc</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>01/15/2024</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>Deposit</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>1,200.00</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	text, err := ExtractDOCX(data)
	if err != nil {
		t.Fatalf("ExtractDOCX returned error: %v", err)
	}

	want := "Business Name: Acme Inc\n01/15/2024 Deposit 1,200.00"
	if text != want {
		t.Errorf("ExtractDOCX = %q, want %q", text, want)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	if _, err := ExtractDOCX(buf.Bytes()); err == nil {
		t.Fatal("expected error for archive without document.xml")
	}
}

func TestExtractHTML(t *testing.T) {
	page := `<html><head><style>td{color:red}</style><script>var x=1;</script></head><body>
<h1>Account Statement</h1>
<p>Account Number: 123456789</p>
<table>
<tr><th>Date</th><th>Description</th><th>Balance</th></tr>
<tr><td>2024-01-31</td><td>NSF Fee</td><td>-35.00</td></tr>
</table>
</body></html>`

	text, err := ExtractHTML([]byte(page))
	if err != nil {
		t.Fatalf("ExtractHTML returned error: %v", err)
	}

	for _, want := range []string{"Account Statement", "Account Number: 123456789", "2024-01-31 NSF Fee -35.00"} {
		if !strings.Contains(text, want) {
			t.Errorf("ExtractHTML output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "var x") || strings.Contains(text, "color:red") {
		t.Errorf("ExtractHTML kept script or style content:\n%s", text)
	}
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Date", "Description", "Amount", "Balance"},
		{"2024-02-01", "Opening", "", "5000.00"},
		{"2024-02-10", "Returned Item Fee", "-35.00", "4965.00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	text, err := ExtractXLSX(buf.Bytes())
	if err != nil {
		t.Fatalf("ExtractXLSX returned error: %v", err)
	}
	if !strings.Contains(text, "2024-02-10 Returned Item Fee -35.00 4965.00") {
		t.Errorf("unexpected workbook text:\n%s", text)
	}
	if !strings.Contains(text, "2024-02-01 Opening 5000.00") {
		t.Errorf("empty cells should be skipped:\n%s", text)
	}
}

func TestExtractTXTDecodesBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Tax ID: 12-3456789\r\n\r\n  Owner Name: Jane Doe  ")...)

	text, err := ExtractTXT(data)
	if err != nil {
		t.Fatalf("ExtractTXT returned error: %v", err)
	}
	if text != "Tax ID: 12-3456789\nOwner Name: Jane Doe" {
		t.Errorf("ExtractTXT = %q", text)
	}
}

func TestExtractTXTDecodesWindows1252(t *testing.T) {
	// 0xE9 is "é" in Windows-1252 and invalid on its own in UTF-8.
	text, err := ExtractTXT([]byte("Business Name: Caf\xe9 Lumi\xe8re"))
	if err != nil {
		t.Fatalf("ExtractTXT returned error: %v", err)
	}
	if text != "Business Name: Café Lumière" {
		t.Errorf("ExtractTXT = %q", text)
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	if _, err := ExtractPDF([]byte("not a pdf")); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		header   string
		want     string
	}{
		{"statement.PDF", "", ContentTypePDF},
		{"app.docx", "application/octet-stream", ContentTypeDOCX},
		{"export.htm", "", ContentTypeHTML},
		{"ledger.xlsx", "", ContentTypeXLSX},
		{"notes", "text/plain; charset=utf-8", ContentTypeText},
		{"blob", "application/octet-stream", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := DetectContentType(tt.filename, tt.header); got != tt.want {
			t.Errorf("DetectContentType(%q, %q) = %q, want %q", tt.filename, tt.header, got, tt.want)
		}
	}
}

func TestExtractFallsBackToTextForUnknownTypes(t *testing.T) {
	text, err := Extract("application/octet-stream", []byte("Bank Name: First National"))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "Bank Name: First National" {
		t.Errorf("Extract = %q", text)
	}

	if _, err := Extract("application/octet-stream", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE}); err == nil {
		t.Error("expected binary data of unknown type to be rejected")
	}
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestServiceExtractText(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{"k/doc.txt": []byte("Annual Revenue: $250,000")}}
	svc := NewService(store, nil)
	ctx := context.Background()

	t.Run("uses cached text", func(t *testing.T) {
		doc := &models.Document{ID: "d1", ExtractedText: "cached"}
		text, err := svc.ExtractText(ctx, doc)
		if err != nil || text != "cached" {
			t.Fatalf("ExtractText = %q, %v", text, err)
		}
	})

	t.Run("downloads and parses", func(t *testing.T) {
		doc := &models.Document{ID: "d2", Filename: "doc.txt", S3Key: "k/doc.txt"}
		text, err := svc.ExtractText(ctx, doc)
		if err != nil {
			t.Fatalf("ExtractText returned error: %v", err)
		}
		if text != "Annual Revenue: $250,000" {
			t.Errorf("ExtractText = %q", text)
		}
	})

	t.Run("missing object", func(t *testing.T) {
		doc := &models.Document{ID: "d3", Filename: "gone.txt", S3Key: "k/gone.txt"}
		_, err := svc.ExtractText(ctx, doc)
		if !errors.Is(err, utils.ErrExtractionUnavailable) {
			t.Fatalf("expected ErrExtractionUnavailable, got %v", err)
		}
	})

	t.Run("no storage key", func(t *testing.T) {
		_, err := svc.ExtractText(ctx, &models.Document{ID: "d4"})
		if !errors.Is(err, utils.ErrExtractionUnavailable) {
			t.Fatalf("expected ErrExtractionUnavailable, got %v", err)
		}
	})
}
