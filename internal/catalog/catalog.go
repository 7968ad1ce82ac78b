package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hundredGrand/Singer/internal/logger"
)

// Catalog 使用 SQLite 记录生成的移调素材和渲染历史。
type Catalog struct {
	db   *sql.DB
	path string
}

// Asset 是一次移调生成的结果。
type Asset struct {
	ID        int64
	Prefix    string
	Pitch     string
	Cents     int
	Path      string
	OK        bool
	Error     string
	CreatedAt time.Time
}

// Render 是一次渲染的摘要。
type Render struct {
	ID        string
	Song      string
	Output    string
	Format    string
	Notes     int
	Samples   int
	Duration  float64
	CreatedAt time.Time
}

// Open 打开或创建目录数据库并完成迁移。
func Open(dbPath string) (*Catalog, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("目录数据库路径为空")
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("启用外键约束失败: %w", err)
	}

	c := &Catalog{db: db, path: dbPath}
	if err := c.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugf("[catalog] 数据库已打开: %s", dbPath)
	return c, nil
}

// Path 返回数据库文件路径。
func (c *Catalog) Path() string { return c.path }

// Migrate 创建表和索引，可重复执行。
func (c *Catalog) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prefix TEXT NOT NULL,
			pitch TEXT NOT NULL,
			cents INTEGER NOT NULL,
			path TEXT NOT NULL,
			ok BOOLEAN NOT NULL DEFAULT 0,
			error TEXT DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS renders (
			id TEXT PRIMARY KEY,
			song TEXT NOT NULL,
			output TEXT NOT NULL,
			format TEXT NOT NULL,
			notes INTEGER DEFAULT 0,
			samples INTEGER DEFAULT 0,
			duration REAL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := c.db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_assets_prefix ON assets(prefix)`,
		`CREATE INDEX IF NOT EXISTS idx_renders_created_at ON renders(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := c.db.Exec(idx); err != nil {
			logger.Warnf("[catalog] 创建索引失败: %v", err)
		}
	}
	return nil
}

// RecordAsset 记录一次移调生成，返回记录 ID。
func (c *Catalog) RecordAsset(a Asset) (int64, error) {
	result, err := c.db.Exec(
		"INSERT INTO assets (prefix, pitch, cents, path, ok, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.Prefix, a.Pitch, a.Cents, a.Path, a.OK, a.Error, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("记录素材失败: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("获取素材 ID 失败: %w", err)
	}
	return id, nil
}

// ListAssets 按生成顺序列出某个前缀的素材，prefix 为空时列出全部。
func (c *Catalog) ListAssets(prefix string) ([]Asset, error) {
	query := "SELECT id, prefix, pitch, cents, path, ok, error, created_at FROM assets"
	var args []interface{}
	if prefix != "" {
		query += " WHERE prefix = ?"
		args = append(args, prefix)
	}
	query += " ORDER BY id"

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("列出素材失败: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		var created int64
		if err := rows.Scan(&a.ID, &a.Prefix, &a.Pitch, &a.Cents, &a.Path, &a.OK, &a.Error, &created); err != nil {
			return nil, fmt.Errorf("读取素材数据失败: %w", err)
		}
		a.CreatedAt = time.Unix(created, 0)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// RecordRender 记录一次渲染，ID 为空时生成 UUID，返回最终 ID。
func (c *Catalog) RecordRender(r Render) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := c.db.Exec(
		"INSERT INTO renders (id, song, output, format, notes, samples, duration, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Song, r.Output, r.Format, r.Notes, r.Samples, r.Duration, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("记录渲染失败: %w", err)
	}
	return r.ID, nil
}

// ListRenders 返回最近的 limit 次渲染，新的在前；limit <= 0 表示不限。
func (c *Catalog) ListRenders(limit int) ([]Render, error) {
	query := "SELECT id, song, output, format, notes, samples, duration, created_at FROM renders ORDER BY created_at DESC, rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("列出渲染历史失败: %w", err)
	}
	defer rows.Close()

	var renders []Render
	for rows.Next() {
		var r Render
		var created int64
		if err := rows.Scan(&r.ID, &r.Song, &r.Output, &r.Format, &r.Notes, &r.Samples, &r.Duration, &created); err != nil {
			return nil, fmt.Errorf("读取渲染数据失败: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)
		renders = append(renders, r)
	}
	return renders, rows.Err()
}

// Close 关闭数据库连接。
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
