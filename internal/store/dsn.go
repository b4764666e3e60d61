package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names a storage backend.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindJSON     Kind = "jsondb"
)

// Location is a parsed database URL: the backend kind and the driver-specific
// target (file path, directory or DSN).
type Location struct {
	Kind   Kind
	Target string
}

// ParseURL interprets a database URL. An empty URL selects the SQLite file
// reservadesk.db inside dataDir.
//
//	sqlite://<path>          SQLite file ("sqlite://:memory:" for in-memory)
//	postgres://... | postgresql://...
//	mysql://<go-sql-driver DSN>
//	jsondb://<directory>     JSON document store
func ParseURL(url, dataDir string) (Location, error) {
	if url == "" {
		return Location{Kind: KindSQLite, Target: filepath.Join(dataDir, "reservadesk.db")}, nil
	}

	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return Location{}, fmt.Errorf("invalid database url %q: missing scheme", url)
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		if rest == "" {
			return Location{}, fmt.Errorf("invalid database url %q: missing path", url)
		}
		if rest == ":memory:" {
			rest = ""
		}
		return Location{Kind: KindSQLite, Target: rest}, nil
	case "postgres", "postgresql":
		return Location{Kind: KindPostgres, Target: url}, nil
	case "mysql":
		if rest == "" {
			return Location{}, fmt.Errorf("invalid database url %q: missing dsn", url)
		}
		return Location{Kind: KindMySQL, Target: rest}, nil
	case "jsondb", "file":
		if rest == "" {
			return Location{}, fmt.Errorf("invalid database url %q: missing directory", url)
		}
		return Location{Kind: KindJSON, Target: rest}, nil
	default:
		return Location{}, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
