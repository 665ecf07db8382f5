// Package search is the stateless index writer and search-engine HTTP
// client from spec §4.I: it assembles the newline-delimited bulk
// payload (alternating action and document lines, never batching
// across indices) and posts it to the configured search engine.
// Grounded on the teacher's metasearch package for the HTTP-client
// shape (zap logging, context-scoped requests, typed not-found errors)
// though the wire format here is the Elasticsearch-style bulk API spec
// §4.H/§4.I describe, not metasearch's own REST metadata surface.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// IndexName derives the search-engine index name for a (root, index
// type) pair. The broker only ships model.DefaultIndexType today but
// keeps the type parameter so an operator-configured second engine
// does not require a wire-format change.
func IndexName(rootID uuid.UUID, indexType model.IndexType) string {
	return fmt.Sprintf("workspace-%s-%s", indexType, rootID)
}

// Op is one bulk action: either an upsert of Doc or, when Delete is
// set, a delete of the document at ID.
type Op struct {
	ID     string
	Delete bool
	Doc    model.IndexDocument
}

type bulkAction struct {
	Update *bulkRef `json:"update,omitempty"`
	Delete *bulkRef `json:"delete,omitempty"`
}

type bulkRef struct {
	ID    string `json:"_id"`
	Index string `json:"_index"`
}

type bulkDoc struct {
	Doc         model.IndexDocument `json:"doc"`
	DocAsUpsert bool                `json:"doc_as_upsert"`
}

// EncodeBulk assembles the exactly-alternating action/document NDJSON
// payload for one index. Mixing indices in a single call is a caller
// error, per spec §4.I ("never batches across indices").
func EncodeBulk(index string, ops []Op) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, op := range ops {
		ref := &bulkRef{ID: op.ID, Index: index}
		if op.Delete {
			if err := enc.Encode(bulkAction{Delete: ref}); err != nil {
				return nil, apierror.Wrap(apierror.KindUnknown, err, "failed to encode bulk delete action")
			}
			continue
		}
		if err := enc.Encode(bulkAction{Update: ref}); err != nil {
			return nil, apierror.Wrap(apierror.KindUnknown, err, "failed to encode bulk update action")
		}
		if err := enc.Encode(bulkDoc{Doc: op.Doc, DocAsUpsert: true}); err != nil {
			return nil, apierror.Wrap(apierror.KindUnknown, err, "failed to encode bulk document")
		}
	}
	return buf.Bytes(), nil
}

// Client talks to the configured search engine's bulk endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

// New builds a Client. A nil httpClient defaults to http.DefaultClient.
func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient, Log: log}
}

// Bulk encodes ops for index with EncodeBulk and posts the resulting
// NDJSON payload to the engine's bulk endpoint.
func (c *Client) Bulk(ctx context.Context, index string, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	payload, err := EncodeBulk(index, ops)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/_bulk", bytes.NewReader(payload))
	if err != nil {
		return apierror.Wrap(apierror.KindUnknown, err, "failed to build bulk request")
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apierror.UpstreamError(err, "search engine bulk request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apierror.UpstreamError(fmt.Errorf("status %d", resp.StatusCode), "search engine rejected bulk request")
	}
	return nil
}

// BulkUpsert is the crawl coordinator's entry point: wrap every
// document as an update/doc_as_upsert op against the root's default
// index.
func (c *Client) BulkUpsert(ctx context.Context, rootID uuid.UUID, docs []model.IndexDocument) error {
	index := IndexName(rootID, model.DefaultIndexType)
	ops := make([]Op, 0, len(docs))
	for _, d := range docs {
		ops = append(ops, Op{ID: d.ID, Doc: d})
	}
	return c.Bulk(ctx, index, ops)
}

// DropIfUnused is the root-index lifecycle supplement from
// SPEC_FULL.md: when a root stops subscribing to an index type (the
// last RootIndex row referencing it is deleted), tear down the
// search-engine index rather than leaving an orphaned, ever-growing
// one behind. Grounded on the teacher's satellite/eventing ConfigCache
// invalidation pattern: the cache/index is addressed by a derived key
// and dropped once nothing references it anymore.
func (c *Client) DropIfUnused(ctx context.Context, rootID uuid.UUID, indexType model.IndexType, stillInUse bool) error {
	if stillInUse {
		return nil
	}
	index := IndexName(rootID, indexType)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/"+index, nil)
	if err != nil {
		return apierror.Wrap(apierror.KindUnknown, err, "failed to build index-drop request")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apierror.UpstreamError(err, "search engine index drop failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return apierror.UpstreamError(fmt.Errorf("status %d", resp.StatusCode), "search engine rejected index drop")
	}
	c.Log.Info("dropped unused search index", zap.String("index", index))
	return nil
}
