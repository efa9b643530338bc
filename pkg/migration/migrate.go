// Package migration は fs.FS に置いた連番付きSQLファイルをSQLiteへ順に流し込む。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// upSuffix は適用対象とみなすファイル名の接尾辞。
const upSuffix = ".up.sql"

// ErrDuplicateVersion は同じ番号のファイルが複数ある場合に返る。
var ErrDuplicateVersion = errors.New("マイグレーション番号が重複しています")

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

// step は1本のupファイル。
type step struct {
	version int
	name    string
	file    string
}

// Run はdir直下の "<番号>_<名前>.up.sql" を番号順に見て、schema_migrationsに無いものだけ適用する。
// 戻り値は今回適用した本数。途中で失敗した場合はそこまでの本数とエラーを返す。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger logrus.FieldLogger) (int, error) {
	steps, err := scan(fsys, dir)
	if err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		return 0, fmt.Errorf("schema_migrationsの作成に失敗: %w", err)
	}
	done, err := loadLedger(ctx, db)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range steps {
		if _, ok := done[s.version]; ok {
			continue
		}
		if err := s.run(ctx, db, fsys); err != nil {
			return n, fmt.Errorf("%s の適用に失敗: %w", s.file, err)
		}
		n++
		logger.WithFields(logrus.Fields{"version": s.version, "name": s.name}).Info("マイグレーションを適用しました")
	}
	return n, nil
}

// scan は命名規則に合うファイルだけを拾い、番号の昇順で返す。
func scan(fsys fs.FS, dir string) ([]step, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションディレクトリ %q を読めません: %w", dir, err)
	}

	steps := make([]step, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, e := range entries {
		s, ok := parseStep(e)
		if !ok {
			continue
		}
		if prev, dup := seen[s.version]; dup {
			return nil, fmt.Errorf("%w: %s と %s", ErrDuplicateVersion, prev, e.Name())
		}
		seen[s.version] = e.Name()
		s.file = path.Join(dir, e.Name())
		steps = append(steps, s)
	}

	slices.SortFunc(steps, func(a, b step) int { return cmp.Compare(a.version, b.version) })
	return steps, nil
}

func parseStep(e fs.DirEntry) (step, bool) {
	if e.IsDir() {
		return step{}, false
	}
	base, ok := strings.CutSuffix(e.Name(), upSuffix)
	if !ok {
		return step{}, false
	}
	num, name, ok := strings.Cut(base, "_")
	if !ok {
		return step{}, false
	}
	v, err := strconv.Atoi(num)
	if err != nil || v < 0 {
		return step{}, false
	}
	return step{version: v, name: name}, true
}

func loadLedger(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("schema_migrationsの読み込みに失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := map[int]struct{}{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("schema_migrationsの読み込みに失敗: %w", err)
		}
		done[v] = struct{}{}
	}
	return done, rows.Err()
}

// run はSQL本体と台帳への記録を同じトランザクションで行う。
func (s step) run(ctx context.Context, db *sql.DB, fsys fs.FS) (err error) {
	body, err := fs.ReadFile(fsys, s.file)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", s.version, s.name); err != nil {
		return fmt.Errorf("schema_migrationsへの記録に失敗: %w", err)
	}
	return tx.Commit()
}
