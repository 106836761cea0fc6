package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ledongthuc/pdf"

	"github.com/vnkhanh/duocast-backend/models"
)

// ContentFetcher là collaborator lấy nội dung thô từ source reference
type ContentFetcher interface {
	Fetch(ctx context.Context, src models.SourceRef) (string, error)
}

// Scraper lấy nội dung từ URL, văn bản nhập tay hoặc file PDF online
type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{client: &http.Client{}}
}

func (s *Scraper) Fetch(ctx context.Context, src models.SourceRef) (string, error) {
	switch src.Kind {
	case models.SourceText:
		content := PreCleanText(src.Detail)
		if content == "" {
			return "", errors.New("văn bản nguồn rỗng")
		}
		return content, nil

	case models.SourceURL:
		raw, err := s.download(ctx, src.Detail)
		if err != nil {
			return "", err
		}
		content := PreCleanText(StripHTML(string(raw)))
		if content == "" {
			return "", fmt.Errorf("không trích xuất được nội dung từ %s", src.Detail)
		}
		return content, nil

	case models.SourcePDFURL:
		raw, err := s.download(ctx, src.Detail)
		if err != nil {
			return "", err
		}
		text, err := extractTextFromPDF(raw)
		if err != nil {
			return "", err
		}
		content := PreCleanText(text)
		if content == "" {
			return "", fmt.Errorf("file PDF %s không có nội dung text", src.Detail)
		}
		return content, nil

	default:
		return "", fmt.Errorf("loại nguồn %q không được hỗ trợ", src.Kind)
	}
}

func (s *Scraper) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("URL nguồn không hợp lệ: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("không tải được nội dung từ %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tải nội dung từ %s lỗi %d", rawURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("không thể tạo reader PDF: %w", err)
	}

	var textBuilder bytes.Buffer
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(content)
	}

	return textBuilder.String(), nil
}
