package corpus

import (
	"context"
	"encoding/json"

	"github.com/FocuswithJustin/Granthalaya/core/cas"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// StaticProvider serves a fixed set of in-memory documents.
type StaticProvider struct {
	Documents []*scripture.Document
	// Err, when set, is returned by every ListDocuments call.
	Err error
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// ListDocuments implements Provider.
func (p *StaticProvider) ListDocuments(ctx context.Context) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	hasher := cas.NewHasher()
	for _, d := range p.Documents {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		hasher.Add(d.ID(), data)
	}

	docs := make([]*scripture.Document, len(p.Documents))
	copy(docs, p.Documents)
	return &Listing{Documents: docs, Fingerprint: hasher.Fingerprint()}, nil
}
