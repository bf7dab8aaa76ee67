// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the daily usage counter.
//
// The increment is a single conditional upsert so that two concurrent
// requests from the same user cannot both pass at the limit boundary: the
// row is created at 1 on the first query of the day, incremented while under
// the limit, and left untouched (no write) once the limit is reached. The
// statement is portable across Postgres and SQLite (both support
// ON CONFLICT ... DO UPDATE ... WHERE and RETURNING).
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/domain"
)

// IncrementUsage atomically increments the user's counter for date, but only
// while the stored count is below limit. It returns the stored count after
// the statement and whether the increment was applied.
//
// A limit of domain.UnlimitedQueries increments unconditionally so that
// unmetered tiers still leave an audit trail.
func IncrementUsage(ctx context.Context, db *gorm.DB, userID, date string, limit int) (count int, allowed bool, err error) {
	now := time.Now().UTC()

	var after int
	var res *gorm.DB
	if limit == domain.UnlimitedQueries {
		res = db.WithContext(ctx).Raw(
			`INSERT INTO user_usage (user_id, date, query_count, updated_at)
			 VALUES (?, ?, 1, ?)
			 ON CONFLICT (user_id, date)
			 DO UPDATE SET query_count = user_usage.query_count + 1, updated_at = excluded.updated_at
			 RETURNING query_count`, userID, date, now,
		).Scan(&after)
	} else {
		res = db.WithContext(ctx).Raw(
			`INSERT INTO user_usage (user_id, date, query_count, updated_at)
			 VALUES (?, ?, 1, ?)
			 ON CONFLICT (user_id, date)
			 DO UPDATE SET query_count = user_usage.query_count + 1, updated_at = excluded.updated_at
			 WHERE user_usage.query_count < ?
			 RETURNING query_count`, userID, date, now, limit,
		).Scan(&after)
	}
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Limit reached: nothing written; report the current count.
		current, gerr := GetUsageCount(ctx, db, userID, date)
		if gerr != nil {
			return 0, false, gerr
		}
		return current, false, nil
	}
	return after, true, nil
}

// GetUsageCount returns the stored count for (user, date), or 0 when no row
// exists yet.
func GetUsageCount(ctx context.Context, db *gorm.DB, userID, date string) (int, error) {
	var u domain.UserUsage
	err := db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.QueryCount, nil
}
