package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type rootIndexesRepo struct{ db *dbutil.DB }

func scanRootIndex(row rowScanner) (model.RootIndex, error) {
	var rootStr, indexType, idStr string
	if err := row.Scan(&rootStr, &indexType, &idStr); err != nil {
		return model.RootIndex{}, err
	}
	rootID, err := uuid.Parse(rootStr)
	if err != nil {
		return model.RootIndex{}, apierror.UpstreamError(err, "corrupt root id in storage")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.RootIndex{}, apierror.UpstreamError(err, "corrupt root index id in storage")
	}
	return model.RootIndex{ID: id, RootID: rootID, IndexType: model.IndexType(indexType)}, nil
}

func (r rootIndexesRepo) Get(ctx context.Context, rootID uuid.UUID, indexType model.IndexType) (model.RootIndex, error) {
	row := r.db.QueryRowRebind(ctx, `SELECT root_id, index_type, id FROM root_indexes WHERE root_id = ? AND index_type = ?`,
		rootID.String(), string(indexType))
	ri, err := scanRootIndex(row)
	if err == sql.ErrNoRows {
		return model.RootIndex{}, apierror.NotFound("root %s is not subscribed for index type %q", rootID, indexType)
	} else if err != nil {
		return model.RootIndex{}, apierror.UpstreamError(err, "failed to read root index")
	}
	return ri, nil
}

func (r rootIndexesRepo) ListForRoot(ctx context.Context, rootID uuid.UUID) ([]model.RootIndex, error) {
	rows, err := r.db.QueryRebind(ctx, `SELECT root_id, index_type, id FROM root_indexes WHERE root_id = ?`, rootID.String())
	if err != nil {
		return nil, apierror.UpstreamError(err, "failed to list root indexes")
	}
	defer rows.Close()
	var out []model.RootIndex
	for rows.Next() {
		ri, err := scanRootIndex(rows)
		if err != nil {
			return nil, apierror.UpstreamError(err, "failed to read root index row")
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (r rootIndexesRepo) CountForIndexType(ctx context.Context, indexType model.IndexType) (int, error) {
	var n int
	err := r.db.QueryRowRebind(ctx, `SELECT COUNT(*) FROM root_indexes WHERE index_type = ?`, string(indexType)).Scan(&n)
	if err != nil {
		return 0, apierror.UpstreamError(err, "failed to count root indexes")
	}
	return n, nil
}

func (r rootIndexesRepo) Create(ctx context.Context, ri model.RootIndex) (model.RootIndex, error) {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	_, err := r.db.ExecRebind(ctx, `INSERT INTO root_indexes (root_id, index_type, id) VALUES (?, ?, ?)`,
		ri.RootID.String(), string(ri.IndexType), ri.ID.String())
	if err != nil {
		return model.RootIndex{}, apierror.IntegrityViolation(err, "root already subscribed for this index type")
	}
	return ri, nil
}

func (r rootIndexesRepo) Delete(ctx context.Context, rootID uuid.UUID, indexType model.IndexType) error {
	res, err := r.db.ExecRebind(ctx, `DELETE FROM root_indexes WHERE root_id = ? AND index_type = ?`,
		rootID.String(), string(indexType))
	if err != nil {
		return apierror.UpstreamError(err, "failed to delete root index")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("root %s is not subscribed for index type %q", rootID, indexType)
	}
	return nil
}
