package services

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"alfredoptarigan/cv-ranker/internal/models"
)

// DocumentNormalizer turns raw résumé bytes into clean UTF-8 text.
type DocumentNormalizer interface {
	Normalize(data []byte, format models.DocumentFormat) (string, error)
}

type documentNormalizer struct{}

func NewDocumentNormalizer() DocumentNormalizer {
	return &documentNormalizer{}
}

// Normalize implements DocumentNormalizer.
func (n *documentNormalizer) Normalize(data []byte, format models.DocumentFormat) (string, error) {
	var (
		raw string
		err error
	)

	switch format {
	case models.FormatPDF:
		raw, err = extractPDF(data)
	case models.FormatDOCX:
		raw, err = extractDOCX(data)
	case models.FormatDOC:
		// Files saved as .doc are often OOXML packages under the wrong name.
		if isZip(data) {
			raw, err = extractDOCX(data)
		} else {
			raw, err = extractDOC(data)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", err
	}

	text := CleanText(raw)
	if text == "" {
		return "", fmt.Errorf("%w: document has no text content", ErrCorruptDocument)
	}

	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf parser panic: %v", ErrCorruptDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open PDF: %v", ErrCorruptDocument, err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

// maxDocumentXMLBytes caps the decompressed size of word/document.xml.
var maxDocumentXMLBytes int64 = 32 << 20

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open DOCX: %v", ErrCorruptDocument, err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: failed to open document part: %v", ErrCorruptDocument, err)
		}
		defer rc.Close()

		lr := &io.LimitedReader{R: rc, N: maxDocumentXMLBytes + 1}
		text, err := wordprocessingText(lr)
		if lr.N <= 0 {
			return "", fmt.Errorf("%w: document part exceeds %d bytes", ErrCorruptDocument, maxDocumentXMLBytes)
		}
		return text, err
	}

	return "", fmt.Errorf("%w: word/document.xml not found", ErrCorruptDocument)
}

// wordprocessingText collects the runs of a WordprocessingML body.
func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: malformed document xml: %v", ErrCorruptDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}

// FIB offsets of the WordDocument stream.
const (
	fibFcMin = 0x18
	fibFcMac = 0x1C
)

func extractDOC(data []byte) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open DOC: %v", ErrCorruptDocument, err)
	}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "WordDocument" {
			continue
		}

		stream, err := io.ReadAll(entry)
		if err != nil {
			return "", fmt.Errorf("%w: failed to read WordDocument stream: %v", ErrCorruptDocument, err)
		}
		return wordDocumentText(stream)
	}

	return "", fmt.Errorf("%w: WordDocument stream not found", ErrCorruptDocument)
}

func wordDocumentText(stream []byte) (string, error) {
	if len(stream) < fibFcMac+4 {
		return "", fmt.Errorf("%w: truncated file information block", ErrCorruptDocument)
	}

	fcMin := binary.LittleEndian.Uint32(stream[fibFcMin:])
	fcMac := binary.LittleEndian.Uint32(stream[fibFcMac:])
	if fcMin >= fcMac || int(fcMac) > len(stream) {
		return "", fmt.Errorf("%w: invalid text range %d..%d", ErrCorruptDocument, fcMin, fcMac)
	}

	body := stream[fcMin:fcMac]

	var (
		decoded []byte
		err     error
	)
	if looksUTF16(body) {
		decoded, err = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	} else {
		decoded, err = charmap.Windows1252.NewDecoder().Bytes(body)
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode text: %v", ErrCorruptDocument, err)
	}

	return stripWordControls(string(decoded)), nil
}

// looksUTF16 reports whether most odd bytes are zero, as in UTF-16LE Latin text.
func looksUTF16(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	zeros := 0
	pairs := len(b) / 2
	for i := 1; i < len(b); i += 2 {
		if b[i] == 0 {
			zeros++
		}
	}
	return zeros*2 > pairs
}

func stripWordControls(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inFieldCode := false

	for _, r := range s {
		switch r {
		case 0x13: // field begin
			inFieldCode = true
		case 0x14: // field separator
			inFieldCode = false
		case 0x15: // field end
			inFieldCode = false
		case '\r', 0x0B, 0x0C:
			sb.WriteRune('\n')
		case 0x07:
			sb.WriteRune('\t')
		default:
			if inFieldCode || (r < 0x20 && r != '\t' && r != '\n') {
				continue
			}
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// CleanText normalizes whitespace: runs of spaces collapse to one, blank
// lines and page breaks disappear, and invalid UTF-8 is dropped.
func CleanText(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	cleanedLines := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
