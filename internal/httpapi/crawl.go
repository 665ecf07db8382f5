package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/crawl"
)

// handleWorkspaceCrawl implements POST /api/workspace/{id}/crawl: open
// or resume the workspace's crawl round (spec §4.G create_round).
func (s *Server) handleWorkspaceCrawl(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	wsID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed workspace id"))
		return
	}

	round, err := s.services.Crawl.CreateRound(r.Context(), user.ID, wsID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

type bulkIndexDocument struct {
	Time          time.Time            `json:"time"`
	Size          float64              `json:"size"`
	ETag          string               `json:"etag"`
	Path          string               `json:"path"`
	Filename      string               `json:"filename"`
	Extension     string               `json:"extension"`
	ContentType   string               `json:"content_type"`
	MediaMetadata *mediaMetadataPayload `json:"media_metadata"`
}

type mediaMetadataPayload struct {
	CodecTagString string  `json:"codec_tag_string"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	DurationTS     float64 `json:"duration_ts"`
	RFrameRate     string  `json:"r_frame_rate"`
	BitRate        float64 `json:"bit_rate"`
	DurationSec    float64 `json:"duration_sec"`
	FormatName     string  `json:"format_name"`
}

type bulkIndexRequest struct {
	RoundID        uuid.UUID           `json:"round_id"`
	LastIndexedKey string              `json:"last_indexed_key"`
	Succeeded      bool                `json:"succeeded"`
	Documents      []bulkIndexDocument `json:"documents"`
}

// handleWorkspaceBulkIndex implements POST
// /api/workspace/{id}/bulk_index: one ingest batch (spec §4.G).
func (s *Server) handleWorkspaceBulkIndex(w http.ResponseWriter, r *http.Request) {
	wsID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed workspace id"))
		return
	}
	var req bulkIndexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	docs := make([]crawl.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		doc := crawl.Document{
			Time: d.Time, Size: d.Size, ETag: d.ETag, Path: d.Path,
			Filename: d.Filename, Extension: d.Extension, ContentType: d.ContentType,
		}
		if d.MediaMetadata != nil {
			doc.MediaMetadata = toMediaMetadata(d.MediaMetadata)
		}
		docs = append(docs, doc)
	}

	round, err := s.services.Crawl.Bulk(r.Context(), wsID, crawl.BulkRequest{
		RoundID: req.RoundID, LastIndexedKey: req.LastIndexedKey, Succeeded: req.Succeeded, Documents: docs,
	}, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}
