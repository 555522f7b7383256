package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/jmorrel/helpqa/internal/model"
	"github.com/jmorrel/helpqa/internal/pkg/dbutil"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

type QueryJobRepo struct {
	db *sql.DB
}

func NewQueryJobRepo(db *sql.DB) *QueryJobRepo {
	return &QueryJobRepo{db: db}
}

func (r *QueryJobRepo) Create(ctx context.Context, question string, now int64) (int64, error) {
	const query = `
		INSERT INTO query_jobs (question, status, answer, message, ctime, mtime)
		VALUES ($1, $2, '', '', $3, $4)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, question, model.JobStatusPending, now, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *QueryJobRepo) Get(ctx context.Context, id int64) (*model.QueryJob, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("query_jobs", where,
		[]string{"id", "question", "status", "answer", "message", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var job model.QueryJob
	if err := row.Scan(
		&job.ID,
		&job.Question,
		&job.Status,
		&job.Answer,
		&job.Message,
		&job.Ctime,
		&job.Mtime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *QueryJobRepo) Complete(ctx context.Context, id int64, answer string, mtime int64) (bool, error) {
	sqlStr, args := dbutil.Finalize(
		"UPDATE query_jobs SET status=?, answer=?, mtime=? WHERE id=? AND status=?",
		[]interface{}{model.JobStatusCompleted, answer, mtime, id, model.JobStatusPending})
	return r.applyTransition(ctx, sqlStr, args)
}

func (r *QueryJobRepo) Fail(ctx context.Context, id int64, message string, mtime int64) (bool, error) {
	sqlStr, args := dbutil.Finalize(
		"UPDATE query_jobs SET status=?, message=?, mtime=? WHERE id=? AND status=?",
		[]interface{}{model.JobStatusFailed, message, mtime, id, model.JobStatusPending})
	return r.applyTransition(ctx, sqlStr, args)
}

func (r *QueryJobRepo) applyTransition(ctx context.Context, sqlStr string, args []interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *QueryJobRepo) DeleteTerminalBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		"DELETE FROM query_jobs WHERE status IN (?, ?) AND mtime < ?",
		[]interface{}{model.JobStatusCompleted, model.JobStatusFailed, cutoff})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
