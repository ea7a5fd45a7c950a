// Package rendersvc turns markdown into PDFs through the external
// pandoc render server.
package rendersvc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Service renders documents. Implemented by the pandoc client and the
// test mock.
type Service interface {
	RenderPDF(ctx context.Context, markdown []byte) ([]byte, error)
}

type pandocService struct {
	baseURL string
	authKey string
	client  *http.Client
}

var _ Service = (*pandocService)(nil)

// NewPandocService returns a client to the render server, a pandoc
// container that takes a markdown request body and answers with PDF
// bytes. Requests authenticate with a shared key.
func NewPandocService(conf *core.Config) *pandocService {
	timeout := conf.Renderer.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &pandocService{
		baseURL: conf.Renderer.BaseURL,
		authKey: conf.Renderer.AuthKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (svc *pandocService) RenderPDF(ctx context.Context, markdown []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL, bytes.NewReader(markdown))
	if err != nil {
		return nil, errors.Wrap(err, "building render request")
	}
	req.Header.Set("authorization", svc.authKey)
	req.Header.Set("from", "markdown")
	req.Header.Set("to", "pdf")

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling render server")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		return nil, errors.Errorf("render server: status %d: %s", res.StatusCode, body)
	}
	pdf, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading rendered document")
	}
	return pdf, nil
}

// Mock renders a deterministic fake document and records what it was
// asked to render.
type Mock struct {
	Rendered [][]byte
	Err      error
}

var _ Service = (*Mock)(nil)

func (m *Mock) RenderPDF(_ context.Context, markdown []byte) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Rendered = append(m.Rendered, markdown)
	return append([]byte("%PDF-1.4 "), markdown...), nil
}
