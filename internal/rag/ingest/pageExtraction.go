package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

const pageExtractTimeout = 10 * time.Second

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

func extractText(path string, contentType commonModels.DocType, logger *logger_i.Logger) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path, logger)
	case commonModels.DOCX, commonModels.TXT:
		return extractDocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func extractPDF(path string, logger *logger_i.Logger) (pages []rawPage, err error) {
	//the pdf reader panics on some malformed files instead of returning an error
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	logger.Debug("extractPDF", "attempting extraction", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}
	f, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			logger.Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractDocxTxtRtf reads a .odt, .docx, .rtf or plaintext file as a single page
func extractDocxTxtRtf(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("timeout")
	}
}

// ExtractBatch concatenates the text of every readable document in order.
// Documents that cannot be read are logged, reported in skipped and do not abort the batch.
func ExtractBatch(files []jobModel.UploadedFile, logger *logger_i.Logger) (text string, read []string, skipped []string) {
	var builder strings.Builder
	for _, file := range files {
		docType := commonModels.GetDocType(file.Path)
		pages, err := extractText(file.Path, docType, logger)
		if err != nil {
			logger.Error("Error reading document", "document", file.Name, "error", err)
			skipped = append(skipped, file.Name)
			continue
		}
		for _, page := range pages {
			builder.WriteString(page.Content)
		}
		read = append(read, file.Name)
	}
	return builder.String(), read, skipped
}
