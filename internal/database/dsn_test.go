package database

import (
	"net/url"
	"path/filepath"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "registrar", Name: "registrar"})
	require.NoError(t, err)
	require.Equal(t, "postgres://registrar@localhost:5432/registrar?sslmode=disable", dsn)
}

func TestBuildPostgresDSNEscapesCredentials(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "registrar",
		Password: "p@ss/word",
		Name:     "records",
		Host:     "db.example.com",
		Port:     6543,
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com:6543", u.Host)
	require.Equal(t, "/records", u.Path)
	password, ok := u.User.Password()
	require.True(t, ok)
	require.Equal(t, "p@ss/word", password)
	require.Equal(t, "require", u.Query().Get("sslmode"))
	require.Equal(t, "public", u.Query().Get("search_path"))
}

func TestBuildPostgresDSNValidatesOverride(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "host=localhost user=registrar dbname=registrar"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost user=registrar dbname=registrar", dsn)

	_, err = buildPostgresDSN(Config{DSN: "postgres://%zz"})
	require.ErrorContains(t, err, "invalid postgres dsn")
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "registrar", Name: "registrar"})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "registrar", parsed.User)
	require.Equal(t, "tcp", parsed.Net)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "registrar", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Contains(t, dsn, "loc=Local")
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "user:secret@tcp(db.example.com:3307)/db?")
	require.Contains(t, dsn, "tls=skip-verify")
}

func TestBuildMySQLDSNValidatesOverride(t *testing.T) {
	_, err := buildMySQLDSN(Config{DSN: "not a dsn"})
	require.ErrorContains(t, err, "invalid mysql dsn")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	memory, err := sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", memory)

	path := filepath.Join(t.TempDir(), "nested", "registrar.sqlite")
	file, err := sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, file, "_journal_mode=WAL")
	require.DirExists(t, filepath.Dir(path))
}
