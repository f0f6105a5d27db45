// 包 store 提供可选的运行历史归档（SQLite），包含表迁移/批量写入/查询/清理。
// 仅追加，不做跨次运行的去重或比对。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-baidu-hotboard/internal/model"
)

// History 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type History struct {
	db *sql.DB
}

// Open 打开归档数据库并执行自动迁移。
func Open(path string) (*History, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	h := &History{db: db}
	if err := h.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return h, nil
}

func (h *History) Close() error { return h.db.Close() }

// migrate 执行建表语句，保持幂等。
func (h *History) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hot_records (
			run_stamp TEXT,
			rank INTEGER,
			title TEXT,
			heat TEXT,
			tag TEXT,
			brief TEXT,
			link TEXT,
			trend TEXT,
			fetched_at TEXT,
			source TEXT,
			created_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_hot_records_run ON hot_records(run_stamp);`,
	}
	for _, q := range stmts {
		if _, err := h.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// SaveRun 将一次运行的全部记录整体写入归档（单事务，全部成功或全部回滚）。
func (h *History) SaveRun(ctx context.Context, stamp string, records []model.Record) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	now := time.Now()
	for _, r := range records {
		_, err := tx.ExecContext(ctx, `INSERT INTO hot_records(run_stamp, rank, title, heat, tag, brief, link, trend, fetched_at, source, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			stamp, r.Rank, r.Title, r.Heat, r.Tag, r.Brief, r.Link, r.Trend, r.FetchedAt, r.Source, now)
		if err != nil {
			return fmt.Errorf("insert record %q: %w", r.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunInfo 为单次归档运行的摘要。
type RunInfo struct {
	Stamp string
	Count int
}

// Runs 按时间倒序返回最近 limit 次运行的摘要。
func (h *History) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `SELECT run_stamp, COUNT(1) FROM hot_records GROUP BY run_stamp ORDER BY run_stamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		if err := rows.Scan(&ri.Stamp, &ri.Count); err != nil {
			return nil, fmt.Errorf("scan runs: %w", err)
		}
		out = append(out, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// RunRecords 返回指定运行的全部记录，按 rank 升序。
func (h *History) RunRecords(ctx context.Context, stamp string) ([]model.Record, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT rank, title, heat, tag, brief, link, trend, fetched_at, source FROM hot_records WHERE run_stamp = ? ORDER BY rank`, stamp)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", stamp, err)
	}
	defer rows.Close()
	var out []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.Rank, &r.Title, &r.Heat, &r.Tag, &r.Brief, &r.Link, &r.Trend, &r.FetchedAt, &r.Source); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", stamp, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run %s: %w", stamp, err)
	}
	return out, nil
}

// CleanOld 按天数阈值清理过期归档（基于 created_at 字段）。
func (h *History) CleanOld(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	_, err := h.db.ExecContext(ctx, `DELETE FROM hot_records WHERE created_at < datetime('now', ?)`, fmtDays(days))
	if err != nil {
		return fmt.Errorf("clean old records: %w", err)
	}
	return nil
}

func fmtDays(days int) string { return fmt.Sprintf("-%d days", days) }
