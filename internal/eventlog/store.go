package eventlog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/careerlens/pkg/event"
	"github.com/nao1215/careerlens/pkg/migration"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	// DefaultLimit はRecentでlimitが指定されなかった場合の件数。
	DefaultLimit = 20
	// MaxLimit はRecentで取得できる最大件数。
	MaxLimit = 100
)

// timeLayout はcreated_atの保存形式。文字列の大小比較が時刻順になるよう桁数を固定する。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrInvalidEvent はAppendに渡されたイベントが不完全な場合に返される。
var ErrInvalidEvent = errors.New("イベントが不正です")

// Store はSQLiteに保存されたイベントログを表す。
type Store struct {
	db *sql.DB
}

// Open はpathのSQLiteデータベースを開き、未適用のマイグレーションを適用する。
// pathに":memory:"を指定するとインメモリデータベースになる。
func Open(ctx context.Context, path string, logger logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}
	// SQLiteは単一ライターのため接続を1本に制限する。インメモリDBも接続ごとに別物になる。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの接続に失敗: %w", err)
	}

	if _, err := migration.Run(ctx, db, migrations, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Append はイベントを1件追記する。
func (s *Store) Append(ctx context.Context, e *event.Event) error {
	if e == nil || e.ID == "" || e.EventType == "" {
		return ErrInvalidEvent
	}

	data := string(e.Data)
	if data == "" {
		data = "null"
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, subject, subject_type, event_type, request_id, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Subject, string(e.SubjectType), string(e.EventType), e.RequestID, data,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	return nil
}

// Recent は新しい順にlimit件のイベントを返す。
// limitが0以下ならDefaultLimit、MaxLimitを超える場合はMaxLimitに丸める。
func (s *Store) Recent(ctx context.Context, limit int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	// 同一時刻のイベントは挿入順の逆で返す
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, subject_type, event_type, request_id, data, created_at
		 FROM events
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*event.Event, 0, limit)
	for rows.Next() {
		var (
			e           event.Event
			subjectType string
			eventType   string
			data        string
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.Subject, &subjectType, &eventType, &e.RequestID, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		e.SubjectType = event.SubjectType(subjectType)
		e.EventType = event.Type(eventType)
		e.Data = []byte(data)
		e.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("作成日時のパースに失敗: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
