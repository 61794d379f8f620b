package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

// SQLConfig holds everything needed to update the label image column. It
// is passed explicitly; nothing is kept in process-wide state.
type SQLConfig struct {
	Server   string
	Port     int
	Database string
	User     string
	Password string

	Table     string
	Column    string
	KeyColumn string
	Key       string
}

// Defaults for the label table layout.
const (
	DefaultTable     = "AOF_LABELS"
	DefaultColumn    = "LABEL_IMAGE"
	DefaultKeyColumn = "LABEL_TYPE"
	DefaultKey       = "O"
)

func (c SQLConfig) withDefaults() SQLConfig {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Column == "" {
		c.Column = DefaultColumn
	}
	if c.KeyColumn == "" {
		c.KeyColumn = DefaultKeyColumn
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
	return c
}

// DSN returns the go-mssqldb connection URL.
func (c SQLConfig) DSN() string {
	host := c.Server
	if c.Port > 0 {
		host = net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
	}

	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// Statement returns the UPDATE that stores the image.
func (c SQLConfig) Statement() string {
	c = c.withDefaults()
	return fmt.Sprintf("UPDATE %s SET %s = @image WHERE %s = @key",
		quoteIdent(c.Table), quoteIdent(c.Column), quoteIdent(c.KeyColumn))
}

// quoteIdent brackets a SQL Server identifier; a dotted name is quoted part
// by part.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

// SQLStore writes the blob into a varbinary column.
type SQLStore struct {
	db  *sql.DB
	cfg SQLConfig
}

// OpenSQL connects to SQL Server. Close must be called when done.
func OpenSQL(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, storageErr("could not open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("could not reach %s/%s: %w", cfg.Server, cfg.Database, err)
	}
	return NewSQLStore(db, cfg), nil
}

// NewSQLStore uses an already open database handle.
func NewSQLStore(db *sql.DB, cfg SQLConfig) *SQLStore {
	return &SQLStore{db: db, cfg: cfg.withDefaults()}
}

func (s *SQLStore) Put(ctx context.Context, blob []byte) error {
	res, err := s.db.ExecContext(ctx, s.cfg.Statement(),
		sql.Named("image", blob),
		sql.Named("key", s.cfg.Key))
	if err != nil {
		return storageErr("could not update %s.%s: %w", s.cfg.Table, s.cfg.Column, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("could not read affected rows: %w", err)
	}
	if n == 0 {
		return storageErr("no row in %s has %s = %q", s.cfg.Table, s.cfg.KeyColumn, s.cfg.Key)
	}
	slog.Info("stored image", "table", s.cfg.Table, "column", s.cfg.Column, "rows", n, "bytes", len(blob))
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
