package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/model"
)

// nodeDTO redacts StorageNode's operator credentials for anyone but
// the node's creator (spec §3: "Credentials are secret operator
// material, never returned to non-owners").
type nodeDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	APIURL          string    `json:"api_url"`
	Region          string    `json:"region"`
	AssumeRoleARN   string    `json:"assume_role_arn,omitempty"`
	CreatorID       uuid.UUID `json:"creator_id"`
	AccessKeyID     string    `json:"access_key_id,omitempty"`
	SecretAccessKey string    `json:"secret_access_key,omitempty"`
}

func toNodeDTO(n model.StorageNode, requester uuid.UUID) nodeDTO {
	dto := nodeDTO{
		ID: n.ID, Name: n.Name, APIURL: n.APIURL, Region: n.Region,
		AssumeRoleARN: n.AssumeRoleARN, CreatorID: n.CreatorID,
	}
	if n.CreatorID == requester {
		dto.AccessKeyID = n.AccessKeyID
		dto.SecretAccessKey = n.SecretAccessKey
	}
	return dto
}

func (s *Server) handleNodeList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	nodes, err := s.services.Repo.Nodes().List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]nodeDTO, 0, len(nodes))
	for _, n := range nodes {
		dtos = append(dtos, toNodeDTO(n, user.ID))
	}
	writeJSON(w, http.StatusOK, dtos)
}

type createNodeRequest struct {
	Name            string `json:"name"`
	APIURL          string `json:"api_url"`
	STSAPIURL       string `json:"sts_api_url"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	AssumeRoleARN   string `json:"assume_role_arn"`
}

func (s *Server) handleNodeCreate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	var req createNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.services.Repo.Nodes().Create(r.Context(), model.StorageNode{
		Name: req.Name, APIURL: req.APIURL, STSAPIURL: req.STSAPIURL, Region: req.Region,
		AccessKeyID: req.AccessKeyID, SecretAccessKey: req.SecretAccessKey,
		AssumeRoleARN: req.AssumeRoleARN, CreatorID: user.ID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNodeDTO(created, user.ID))
}

func (s *Server) handleNodeDelete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apierror.InvalidArgument("malformed node id"))
		return
	}

	node, err := s.services.Repo.Nodes().Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if node.CreatorID != user.ID {
		writeError(w, apierror.PermissionDenied("only the node's creator may delete it"))
		return
	}
	if err := s.services.Repo.Nodes().Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
