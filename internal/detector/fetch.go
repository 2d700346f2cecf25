package detector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/roomlens/roomlens-go/internal/errors"
	"github.com/roomlens/roomlens-go/internal/httpclient"
)

// sniffLimit is how many leading bytes of a model artifact are inspected for
// markup signatures. CDNs and captive portals routinely answer model URLs
// with HTML error pages and a 200 status.
const sniffLimit = 256

var markupSignatures = [][]byte{
	[]byte("<!doctype"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
	[]byte("<?xml"),
	[]byte("<error"),
}

// looksLikeMarkup reports whether the payload prefix resembles an HTML or XML
// document rather than a model binary.
func looksLikeMarkup(data []byte) bool {
	if len(data) > sniffLimit {
		data = data[:sniffLimit]
	}
	prefix := bytes.ToLower(bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf"))
	for _, sig := range markupSignatures {
		if bytes.HasPrefix(prefix, sig) {
			return true
		}
	}
	return false
}

// rejectedContentType reports whether the response content type marks the
// payload as text or markup instead of a binary artifact.
func rejectedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "text/xml") ||
		strings.HasPrefix(ct, "application/xhtml")
}

// fetchModel resolves the configured model source to raw model bytes. Local
// paths are read directly; http(s) sources are downloaded and sanity-checked
// so that an error page never reaches the inference engine.
func (p *Pipeline) fetchModel(ctx context.Context) ([]byte, error) {
	source := p.settings.ModelSource
	if source == "" {
		return nil, errors.Newf("no model source configured").
			Component("detector").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.downloadModel(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot read model file: %w", err)).
			Component("detector").
			Category(errors.CategoryFileIO).
			ModelContext(source, p.settings.ModelID).
			Build()
	}
	if err := validateModelPayload(data, ""); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Pipeline) downloadModel(ctx context.Context, url string) ([]byte, error) {
	client := httpclient.New(&httpclient.Config{DefaultTimeout: p.settings.FetchTimeout})

	data, resp, err := client.GetBytes(ctx, url)
	if err != nil {
		return nil, errors.New(fmt.Errorf("model download failed: %w", err)).
			Component("detector").
			Category(errors.CategoryModelFetch).
			ModelContext(url, p.settings.ModelID).
			Build()
	}

	if err := validateModelPayload(data, responseContentType(resp)); err != nil {
		return nil, err
	}

	p.log.Debug("model artifact downloaded", "url", url, "bytes", len(data))
	return data, nil
}

func responseContentType(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("Content-Type")
}

// validateModelPayload rejects payloads that fail the binary sanity check:
// empty bodies, text/markup content types, and byte prefixes that look like a
// served error page.
func validateModelPayload(data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.Newf("model payload is empty").
			Component("detector").
			Category(errors.CategoryModelFetch).
			Build()
	}
	if rejectedContentType(contentType) {
		return errors.Newf("model source answered with %q instead of a binary artifact", contentType).
			Component("detector").
			Category(errors.CategoryModelFetch).
			Context("content_type", contentType).
			Build()
	}
	if looksLikeMarkup(data) {
		return errors.Newf("model payload looks like a markup document, not a model binary").
			Component("detector").
			Category(errors.CategoryModelFetch).
			Build()
	}
	return nil
}
