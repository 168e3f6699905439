package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// CategorySummary is one row of the per-owner reporting summary.
type CategorySummary struct {
	Category   string `json:"category"`
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

// GetOwnerSummary returns detection counts grouped by category and routing
// department for a single owner.
func GetOwnerSummary(db *sql.DB, userID uint) ([]CategorySummary, error) {
	queryBuilder := psql.Select("category", "department", "COUNT(*) AS count").
		From("detections").
		Where(sq.Eq{"user_id": userID}).
		GroupBy("category", "department").
		OrderBy("category ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetOwnerSummary: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query owner summary for user %d: %w", userID, err)
	}
	defer rows.Close()

	var summaries []CategorySummary
	for rows.Next() {
		var s CategorySummary
		if err := rows.Scan(&s.Category, &s.Department, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan owner summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owner summary rows: %w", err)
	}

	return summaries, nil
}
