package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file extensions outside the supported
// set. Wrap sites attach the offending extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

type ExtractedText struct {
	Content  string
	Pages    int
	Metadata map[string]string
}

// ExtractFile reads the file at path and extracts plain text, dispatching on
// the file extension.
func ExtractFile(path string) (*ExtractedText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return Extract(f, info.Size(), filepath.Ext(path))
}

// Extract pulls plain text out of a document. Pages or slides that yield no
// text contribute an empty string; only a file that cannot be opened at all
// is an error.
func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".ppt", ".pptx", "ppt", "pptx",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return extractPPTX(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".txt", ".pdf", ".ppt", ".pptx"}
}

func extractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable page contributes nothing
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &ExtractedText{
		Content: buf.String(),
		Pages:   numPages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

// extractPPTX reads the slide XML parts of an Office Open XML deck. Legacy
// binary .ppt files are not zip archives and fail at open, which is the
// whole-file failure case.
func extractPPTX(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open presentation: %w", err)
	}

	slides := make(map[int]*zip.File)
	var order []int
	for _, f := range reader.File {
		n, ok := slideNumber(f.Name)
		if !ok {
			continue
		}
		slides[n] = f
		order = append(order, n)
	}
	sort.Ints(order)

	var buf strings.Builder
	for _, n := range order {
		text, err := slideText(slides[n])
		if err != nil {
			// unreadable slide contributes nothing
			continue
		}
		buf.WriteString(text)
	}

	return &ExtractedText{
		Content: buf.String(),
		Pages:   len(order),
		Metadata: map[string]string{
			"type": "pptx",
		},
	}, nil
}

// slideNumber parses N from "ppt/slides/slideN.xml".
func slideNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
		return 0, false
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return n, true
}

// slideText collects the text runs (<a:t> elements) of one slide.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var buf strings.Builder
	var inTextRun bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inTextRun = t.Name.Local == "t"
		case xml.EndElement:
			if t.Name.Local == "t" {
				inTextRun = false
			}
		case xml.CharData:
			if inTextRun {
				buf.Write(t)
				buf.WriteString("\n")
			}
		}
	}
	return buf.String(), nil
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	return &ExtractedText{
		Content: string(bytes.TrimSpace(buf)),
		Pages:   1,
		Metadata: map[string]string{
			"type": "txt",
		},
	}, nil
}
