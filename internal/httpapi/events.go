package httpapi

import (
	"net/http"

	"github.com/storj-labs/workspace-broker/internal/ingest"
)

// eventPayload mirrors the standard S3 bucket-notification JSON shape
// (spec §6: "the standard S3 notification JSON with Records[*]...").
type eventPayload struct {
	Records []eventRecord `json:"Records"`
}

type eventRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string  `json:"key"`
			Size float64 `json:"size"`
			ETag string  `json:"eTag"`
		} `json:"object"`
	} `json:"s3"`
}

// handleEventsProbe implements HEAD /api/minio/events: some object
// stores probe the notification sink on startup.
func (s *Server) handleEventsProbe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleEvents implements POST /api/minio/events: spec §4.H's push
// ingest entrypoint.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var req eventPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payload := ingest.Payload{Records: make([]ingest.Record, 0, len(req.Records))}
	for _, rec := range req.Records {
		payload.Records = append(payload.Records, ingest.Record{
			EventName: rec.EventName,
			Bucket:    rec.S3.Bucket.Name,
			ObjectKey: rec.S3.Object.Key,
			ETag:      rec.S3.Object.ETag,
			Size:      rec.S3.Object.Size,
		})
	}

	if err := s.services.Ingest.Handle(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
