// Package citation resolves document citations to something displayable:
// a signed URL for images, the cited text chunk for PDFs.
package citation

import (
	"context"
	"fmt"
	"strings"

	"cortexchat/config"
	"cortexchat/cortex"
)

// Placeholders shown when a lookup returns nothing.
const (
	NoURL  = "No URL available"
	NoText = "No text available"
)

// Kind of a resolved citation.
type Kind int

const (
	KindImage Kind = iota + 1
	KindText
)

// DocStore looks up cited documents. An empty result with a nil error means
// no rows.
type DocStore interface {
	PresignedURL(ctx context.Context, path string) (string, error)
	Chunk(ctx context.Context, path string, index cortex.ID) (string, error)
}

// Resolved is a citation ready for display.
type Resolved struct {
	Citation cortex.Citation
	Kind     Kind
	// Body is the URL for images and the chunk text for documents.
	Body string
	// Missing is set when the placeholder was used.
	Missing bool
	Err     error
}

// Label is the "[source_id]" heading of the citation panel.
func (r Resolved) Label() string {
	return fmt.Sprintf("[%s]", r.Citation.SourceID)
}

// Renderer turns citations into something a reader can open.
type Renderer struct {
	store DocStore
}

// NewRenderer resolves citations against store.
func NewRenderer(store DocStore) *Renderer {
	return &Renderer{store: store}
}

// Resolve looks up every citation by the suffix of its document title.
// ".jpeg" gets a signed URL, ".pdf" gets the chunk text, anything else is
// skipped. A failed lookup is reported on the entry and does not stop the
// others.
func (r *Renderer) Resolve(ctx context.Context, citations []cortex.Citation) []Resolved {
	var out []Resolved
	for _, c := range citations {
		title := strings.ToLower(c.DocTitle)
		switch {
		case strings.HasSuffix(title, ".jpeg"):
			out = append(out, r.image(ctx, c))
		case strings.HasSuffix(title, ".pdf"):
			out = append(out, r.text(ctx, c))
		default:
			config.Log.Debug().Str("doc_title", c.DocTitle).Msg("citation skipped, unsupported document type")
		}
	}
	return out
}

func (r *Renderer) image(ctx context.Context, c cortex.Citation) Resolved {
	res := Resolved{Citation: c, Kind: KindImage}
	url, err := r.store.PresignedURL(ctx, c.DocTitle)
	if err != nil {
		res.Err = fmt.Errorf("failed to get URL for %s: %w", c.DocTitle, err)
	}
	if url == "" {
		url, res.Missing = NoURL, true
	}
	res.Body = url
	return res
}

func (r *Renderer) text(ctx context.Context, c cortex.Citation) Resolved {
	res := Resolved{Citation: c, Kind: KindText}
	chunk, err := r.store.Chunk(ctx, c.DocTitle, c.DocChunk)
	if err != nil {
		res.Err = fmt.Errorf("failed to get chunk %s of %s: %w", c.DocChunk, c.DocTitle, err)
	}
	if chunk == "" {
		chunk, res.Missing = NoText, true
	}
	res.Body = chunk
	return res
}
