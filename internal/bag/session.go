// Package bag persists synchronized multi-stream frames into an sqlite
// session container, one database file per recording run.
package bag

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// TopicSpec registers one stream of a session: a topic name and the wire
// type recorded for it. Registration happens once at open, not per frame.
type TopicSpec struct {
	Name string
	Type string
}

// Session is the recording lifecycle object. It is either Closed (no
// database handle) or Open; at most one container file is open at a time.
// All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	dir      string
	topics   []TopicSpec
	db       *sql.DB
	path     string
	topicIDs map[string]int64
	count    uint64
}

// NewSession prepares a closed session writing containers under dir.
func NewSession(dir string, topics []TopicSpec) *Session {
	return &Session{dir: dir, topics: topics}
}

// Open creates a new container keyed by the current epoch and registers all
// topics. Calling Open on an already-open session is a no-op.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	base := fmt.Sprintf("manual_%d", time.Now().Unix())
	path := filepath.Join(s.dir, base+".db")
	// Sessions opened and reopened within the same second must not share a
	// container.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d.db", base, i))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open session container: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE,
			type TEXT,
			serialization_format TEXT
		);
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			topic_id INTEGER,
			timestamp BIGINT,
			data BLOB,
			FOREIGN KEY(topic_id) REFERENCES topics(id)
		);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("create session schema: %w", err)
	}

	if _, err := db.Exec("INSERT INTO metadata (id) VALUES (?)", uuid.NewString()); err != nil {
		db.Close()
		return fmt.Errorf("write session metadata: %w", err)
	}

	ids := make(map[string]int64, len(s.topics))
	for _, t := range s.topics {
		res, err := db.Exec(
			"INSERT INTO topics (name, type, serialization_format) VALUES (?, ?, ?)",
			t.Name, t.Type, "json",
		)
		if err != nil {
			db.Close()
			return fmt.Errorf("register topic %q: %w", t.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			db.Close()
			return fmt.Errorf("register topic %q: %w", t.Name, err)
		}
		ids[t.Name] = id
	}

	s.db = db
	s.path = path
	s.topicIDs = ids
	s.count = 0
	log.Printf("bag: session opened -> %s", path)
	return nil
}

// IsOpen reports whether a container is currently open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Path returns the container path of the open session, or the last one
// opened.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// MessageCount returns the number of frames written since open.
func (s *Session) MessageCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Write records one synchronized frame: one serialized payload per topic,
// all sharing the same nanosecond timestamp. Frames arriving while the
// session is closed are silently dropped; a failed insert is logged and
// recording continues on subsequent frames.
func (s *Session) Write(stampNs int64, payloads map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return
	}

	for _, t := range s.topics {
		data, ok := payloads[t.Name]
		if !ok {
			continue
		}
		_, err := s.db.Exec(
			"INSERT INTO messages (topic_id, timestamp, data) VALUES (?, ?, ?)",
			s.topicIDs[t.Name], stampNs, data,
		)
		if err != nil {
			log.Printf("bag: write error on %q: %v", t.Name, err)
		}
	}

	s.count++
	if s.count%10 == 0 {
		log.Printf("bag: … %d msgs", s.count)
	}
}

// Close flushes and releases the container handle. It is idempotent and
// safe to call on a session that was never opened.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return
	}

	if err := s.db.Close(); err != nil {
		log.Printf("bag: close error: %v", err)
	}
	log.Printf("bag: session closed (total %d msgs)", s.count)
	s.db = nil
	s.topicIDs = nil
}
