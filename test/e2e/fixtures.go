package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions lists the formats the fixtures can be written in.
// PDF is not generated here: there is no minimal PDF with extractable text.
var SupportedFileExtensions = []string{".txt", ".md", ".docx", ".xlsx"}

// EncodeFixture renders paragraphs as a document of the given extension.
func EncodeFixture(ext string, paragraphs []string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(strings.Join(paragraphs, "\n\n")), nil
	case ".docx":
		return minimalDocx(paragraphs)
	case ".xlsx":
		return minimalXlsx(paragraphs)
	default:
		return nil, fmt.Errorf("unsupported fixture extension %q", ext)
	}
}

func minimalDocx(paragraphs []string) ([]byte, error) {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + html.EscapeString(p) + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`
	if _, err := fw.Write([]byte(doc)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalXlsx(paragraphs []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, p := range paragraphs {
		if err := f.SetCellValue("Sheet1", fmt.Sprintf("A%d", i+1), p); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
