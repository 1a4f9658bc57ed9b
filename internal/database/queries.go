package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubesum/internal/domain"
)

// DefaultHistoryLimit is used when GetUserRequests is given a non-positive limit.
const DefaultHistoryLimit = 10

func (d *Database) AddRequest(ctx context.Context, record domain.RequestRecord) error {
	status := domain.RequestStatus(strings.TrimSpace(string(record.Status)))
	if status == "" {
		return errors.New("request status is empty")
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `insert into summary_requests (user_id, chat_id, video_id, status, created_at)
	values (?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		record.UserID,
		record.ChatID,
		strings.TrimSpace(record.VideoID),
		string(status),
		createdAt.UTC())

	return err
}

// GetUserRequests returns the user's most recent requests, newest first.
func (d *Database) GetUserRequests(
	ctx context.Context,
	userID int64,
	limit int,
) ([]domain.RequestRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `select id, user_id, chat_id, video_id, status, created_at
	from summary_requests
	where user_id = ?
	order by created_at desc, id desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "GetUserRequests")
		}
	}()

	var records []domain.RequestRecord
	for rows.Next() {
		var (
			r      domain.RequestRecord
			status string
		)
		if err = rows.Scan(&r.ID, &r.UserID, &r.ChatID, &r.VideoID, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Status = domain.RequestStatus(status)
		r.CreatedAt = r.CreatedAt.UTC()

		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}

// DeleteRequestsBefore removes journal records created before t and reports
// how many were removed.
func (d *Database) DeleteRequestsBefore(ctx context.Context, t time.Time) (int64, error) {
	query := "delete from summary_requests where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}
