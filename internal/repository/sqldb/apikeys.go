package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type apikeysRepo struct{ db *dbutil.DB }

func scanAPIKey(row rowScanner) (model.ApiKey, error) {
	var idStr, userStr string
	var k model.ApiKey
	if err := row.Scan(&idStr, &userStr, &k.KeyID, &k.SecretHash); err != nil {
		return model.ApiKey{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.ApiKey{}, apierror.UpstreamError(err, "corrupt api key id in storage")
	}
	user, err := uuid.Parse(userStr)
	if err != nil {
		return model.ApiKey{}, apierror.UpstreamError(err, "corrupt user id in storage")
	}
	k.ID, k.UserID = id, user
	return k, nil
}

func (r apikeysRepo) GetByKeyID(ctx context.Context, keyID string) (model.ApiKey, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT id, user_id, key_id, secret_hash FROM api_keys WHERE key_id = ?`, keyID)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return model.ApiKey{}, apierror.NotFound("api key %q not found", keyID)
	} else if err != nil {
		return model.ApiKey{}, apierror.UpstreamError(err, "failed to read api key")
	}
	return k, nil
}

func (r apikeysRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.ApiKey, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT id, user_id, key_id, secret_hash FROM api_keys WHERE user_id = ?`, userID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list api keys for user")
	}
	defer rows.Close()
	var out []model.ApiKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read api key row")
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r apikeysRepo) Create(ctx context.Context, k model.ApiKey) (model.ApiKey, error) {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `INSERT INTO api_keys (id, user_id, key_id, secret_hash) VALUES (?, ?, ?, ?)`,
		k.ID.String(), k.UserID.String(), k.KeyID, k.SecretHash)
	if err != nil {
		return model.ApiKey{}, apierror.IntegrityViolation(err, "api key id already exists")
	}
	return k, nil
}
