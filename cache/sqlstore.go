package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	_ "github.com/jackc/pgx/v5/stdlib"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"
	"golang.org/x/net/proxy"
)

// sqlStore backs the manifest with a real database, shared by every driver
// invocation that points at the same DSN -- the same role the teacher's
// deployed schema plays for tracking applied SQL.
type sqlStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens dsn through the driver named by driverName ("postgres"
// or "sqlserver") and ensures the manifest table exists.
func NewSQLStore(ctx context.Context, driverName, dsn string) (Store, error) {
	var db *sql.DB

	switch driverName {
	case "postgres":
		opened, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		db = opened
	case "sqlserver":
		connector, err := newSQLServerConnector(ctx, dsn)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	default:
		return nil, fmt.Errorf("cache: unsupported sql driver %q", driverName)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: connecting to %s store: %w", driverName, err)
	}

	s := &sqlStore{db: db, driver: driverName}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newSQLServerConnector builds an mssql.Connector, routing an "azuresql://"
// DSN through Azure AD token auth instead of a SQL login, the same split the
// teacher's deploy path makes between a plain connection string and a
// managed-identity one. The rewritten DSN carries fedauth=ActiveDirectoryDefault
// so azuread.NewConnector authenticates through the same default credential
// chain (environment, managed identity, Azure CLI, ...) that
// azidentity.NewDefaultAzureCredential resolves here as a fail-fast check --
// a bad or missing credential is reported before a connection attempt is
// even made, rather than surfacing as an opaque driver error later. An
// IHEADERS_CACHE_SOCKS environment variable, when set, routes the connection
// through a SOCKS5 proxy -- the same escape hatch the teacher's OpenSocks5Sql
// offers for reaching a database behind a bastion.
func newSQLServerConnector(ctx context.Context, dsn string) (*mssql.Connector, error) {
	const azurePrefix = "azuresql://"

	var connector *mssql.Connector
	if strings.HasPrefix(dsn, azurePrefix) {
		if _, err := azidentity.NewDefaultAzureCredential(nil); err != nil {
			return nil, fmt.Errorf("cache: acquiring azure credential: %w", err)
		}
		adDSN, err := withDefaultFedAuth("sqlserver://" + strings.TrimPrefix(dsn, azurePrefix))
		if err != nil {
			return nil, fmt.Errorf("cache: parsing azuresql dsn: %w", err)
		}
		c, err := azuread.NewConnector(adDSN)
		if err != nil {
			return nil, err
		}
		connector = c
	} else {
		c, err := mssql.NewConnector(dsn)
		if err != nil {
			return nil, err
		}
		connector = c
	}

	if socksAddr := os.Getenv("IHEADERS_CACHE_SOCKS"); socksAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("cache: connecting with SOCKS5 to %s: %w", socksAddr, err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("cache: SOCKS5 dialer does not support context-aware dialing")
		}
		connector.Dialer = contextDialer
	}

	return connector, nil
}

// withDefaultFedAuth adds fedauth=ActiveDirectoryDefault to dsn unless it
// already names a fedauth mode, so azuread.NewConnector resolves credentials
// through the same default chain validated by newSQLServerConnector's
// preflight azidentity check.
func withDefaultFedAuth(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("fedauth") == "" {
		q.Set("fedauth", "ActiveDirectoryDefault")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// ph renders the n'th bind parameter in whichever placeholder dialect the
// underlying driver expects.
func (s *sqlStore) ph(n int) string {
	if s.driver == "sqlserver" {
		return fmt.Sprintf("@p%d", n)
	}
	return fmt.Sprintf("$%d", n)
}

func (s *sqlStore) migrate(ctx context.Context) error {
	ddl := `create table if not exists iheaders_manifest (
		source_hash char(64) not null,
		config_hash char(64) not null,
		output_path text not null,
		output_hash char(64) not null,
		generated_at timestamp not null,
		primary key (source_hash, config_hash, output_path)
	)`
	if s.driver == "sqlserver" {
		ddl = `if not exists (select 1 from sys.tables where name = 'iheaders_manifest')
		create table iheaders_manifest (
			source_hash char(64) not null,
			config_hash char(64) not null,
			output_path nvarchar(1024) not null,
			output_hash char(64) not null,
			generated_at datetime2 not null,
			primary key (source_hash, config_hash, output_path)
		)`
	}
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *sqlStore) Lookup(ctx context.Context, key CacheKey) (ManifestEntry, bool, error) {
	query := fmt.Sprintf(`select output_path, output_hash, generated_at
		from iheaders_manifest where source_hash = %s and config_hash = %s`,
		s.ph(1), s.ph(2))
	row := s.db.QueryRowContext(ctx, query, hexEncode(key.SourceHash), hexEncode(key.ConfigHash))

	var outputPath, outputHash string
	var generatedAt time.Time
	switch err := row.Scan(&outputPath, &outputHash, &generatedAt); err {
	case nil:
		entry := ManifestEntry{Key: key, OutputPath: outputPath, GeneratedAt: generatedAt}
		decoded, err := hexDecode32(outputHash)
		if err != nil {
			return ManifestEntry{}, false, fmt.Errorf("cache: corrupt output_hash for %s: %w", outputPath, err)
		}
		entry.OutputHash = decoded
		return entry, true, nil
	case sql.ErrNoRows:
		return ManifestEntry{}, false, nil
	default:
		return ManifestEntry{}, false, err
	}
}

func (s *sqlStore) Record(ctx context.Context, entry ManifestEntry) error {
	del := fmt.Sprintf(`delete from iheaders_manifest
		where source_hash = %s and config_hash = %s and output_path = %s`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, del,
		hexEncode(entry.Key.SourceHash), hexEncode(entry.Key.ConfigHash), entry.OutputPath); err != nil {
		return err
	}

	ins := fmt.Sprintf(`insert into iheaders_manifest
		(source_hash, config_hash, output_path, output_hash, generated_at)
		values (%s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	_, err := s.db.ExecContext(ctx, ins,
		hexEncode(entry.Key.SourceHash), hexEncode(entry.Key.ConfigHash), entry.OutputPath,
		hexEncode(entry.OutputHash), entry.GeneratedAt)
	return err
}

func (s *sqlStore) List(ctx context.Context) ([]ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx, `select source_hash, config_hash, output_path, output_hash, generated_at
		from iheaders_manifest`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ManifestEntry
	for rows.Next() {
		var sourceHash, configHash, outputPath, outputHash string
		var generatedAt time.Time
		if err := rows.Scan(&sourceHash, &configHash, &outputPath, &outputHash, &generatedAt); err != nil {
			return nil, err
		}
		decodedSource, err := hexDecode32(sourceHash)
		if err != nil {
			return nil, err
		}
		decodedConfig, err := hexDecode32(configHash)
		if err != nil {
			return nil, err
		}
		decodedOutput, err := hexDecode32(outputHash)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ManifestEntry{
			Key:         CacheKey{SourceHash: decodedSource, ConfigHash: decodedConfig},
			OutputPath:  outputPath,
			OutputHash:  decodedOutput,
			GeneratedAt: generatedAt,
		})
	}
	return entries, rows.Err()
}

func (s *sqlStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from iheaders_manifest`)
	return err
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func hexEncode(b [32]byte) string {
	return hex.EncodeToString(b[:])
}

func hexDecode32(s string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("expected %d bytes, got %d", len(out), len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
