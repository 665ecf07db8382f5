package sqldb

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/storj-labs/workspace-broker/internal/apierror"
	"github.com/storj-labs/workspace-broker/internal/dbutil"
	"github.com/storj-labs/workspace-broker/internal/model"
)

type crawlRoundsRepo struct{ db *dbutil.DB }

const crawlRoundColumns = `id, workspace_id, start_time, end_time, succeeded, last_indexed_key, total_objects, total_size`

func scanCrawlRound(row rowScanner) (model.WorkspaceCrawlRound, error) {
	var idStr, wsStr string
	var round model.WorkspaceCrawlRound
	var endTime sql.NullTime
	if err := row.Scan(&idStr, &wsStr, &round.StartTime, &endTime, &round.Succeeded,
		&round.LastIndexedKey, &round.TotalObjects, &round.TotalSize); err != nil {
		return model.WorkspaceCrawlRound{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.WorkspaceCrawlRound{}, apierror.UpstreamError(err, "corrupt crawl round id in storage")
	}
	ws, err := uuid.Parse(wsStr)
	if err != nil {
		return model.WorkspaceCrawlRound{}, apierror.UpstreamError(err, "corrupt workspace id in storage")
	}
	round.ID, round.WorkspaceID = id, ws
	if endTime.Valid {
		round.EndTime = &endTime.Time
	}
	return round, nil
}

func (r crawlRoundsRepo) Latest(ctx context.Context, workspaceID uuid.UUID) (model.WorkspaceCrawlRound, bool, error) {
	row := r.db.QueryRowRebind(ctx,
		`SELECT `+crawlRoundColumns+` FROM workspace_crawl_rounds WHERE workspace_id = ? ORDER BY start_time DESC LIMIT 1`,
		workspaceID.String())
	round, err := scanCrawlRound(row)
	if err == sql.ErrNoRows {
		return model.WorkspaceCrawlRound{}, false, nil
	} else if err != nil {
		return model.WorkspaceCrawlRound{}, false, apierror.UpstreamError(err, "failed to read latest crawl round")
	}
	return round, true, nil
}

func (r crawlRoundsRepo) Create(ctx context.Context, round model.WorkspaceCrawlRound) (model.WorkspaceCrawlRound, error) {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	var endTime any
	if round.EndTime != nil {
		endTime = *round.EndTime
	}
	_, err := r.db.ExecRebind(ctx, `
		INSERT INTO workspace_crawl_rounds
			(id, workspace_id, start_time, end_time, succeeded, last_indexed_key, total_objects, total_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID.String(), round.WorkspaceID.String(), round.StartTime, endTime,
		round.Succeeded, round.LastIndexedKey, round.TotalObjects, round.TotalSize)
	if err != nil {
		return model.WorkspaceCrawlRound{}, apierror.UpstreamError(err, "failed to create crawl round")
	}
	return round, nil
}

func (r crawlRoundsRepo) Update(ctx context.Context, round model.WorkspaceCrawlRound) error {
	var endTime any
	if round.EndTime != nil {
		endTime = *round.EndTime
	}
	res, err := r.db.ExecRebind(ctx, `
		UPDATE workspace_crawl_rounds
		SET end_time = ?, succeeded = ?, last_indexed_key = ?, total_objects = ?, total_size = ?
		WHERE id = ?`,
		endTime, round.Succeeded, round.LastIndexedKey, round.TotalObjects, round.TotalSize, round.ID.String())
	if err != nil {
		return apierror.UpstreamError(err, "failed to update crawl round")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierror.NotFound("crawl round %s not found", round.ID)
	}
	return nil
}
