package bag

import (
	"database/sql"
	"fmt"
)

// TopicInfo summarizes one recorded topic.
type TopicInfo struct {
	Name     string
	Type     string
	Messages int64
}

// Info summarizes a session container.
type Info struct {
	Path      string
	ID        string
	CreatedAt string
	Topics    []TopicInfo
	Messages  int64
}

// ReadInfo opens a session container read-only and reports its metadata,
// topic table, and per-topic message counts.
func ReadInfo(path string) (*Info, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session container: %w", err)
	}
	defer db.Close()

	info := &Info{Path: path}

	row := db.QueryRow("SELECT id, created_at FROM metadata LIMIT 1")
	if err := row.Scan(&info.ID, &info.CreatedAt); err != nil {
		return nil, fmt.Errorf("read session metadata: %w", err)
	}

	rows, err := db.Query(`
		SELECT t.name, t.type, COUNT(m.id)
		FROM topics t LEFT JOIN messages m ON m.topic_id = t.id
		GROUP BY t.id ORDER BY t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("read topic table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t TopicInfo
		if err := rows.Scan(&t.Name, &t.Type, &t.Messages); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		info.Topics = append(info.Topics, t)
		info.Messages += t.Messages
	}
	return info, rows.Err()
}
