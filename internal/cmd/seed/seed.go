// Package seed loads a theme catalog fixture into the whispden game store.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/game/storage/postgres"
	"github.com/perttula/whispden/internal/game/storage/sqlite"
	entrypoint "github.com/perttula/whispden/internal/platform/cmd"
)

// Config holds seed command configuration.
type Config struct {
	DBDriver    string `env:"WHISPDEN_DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"WHISPDEN_DB_PATH"`
	DBURL       string `env:"WHISPDEN_DB_URL"`
	FixturePath string `env:"WHISPDEN_FIXTURES"`
}

// ParseConfig parses environment and flags into a Config. When no fixture
// path is given, the catalog shipped under db/fixtures in the repository is
// used.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "whispden.db")
	}
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "game store driver (sqlite or postgres)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.DBURL, "db-url", cfg.DBURL, "postgres connection URL")
	fs.StringVar(&cfg.FixturePath, "fixtures", cfg.FixturePath, "theme catalog fixture path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.FixturePath == "" {
		root, err := repoRoot()
		if err != nil {
			return Config{}, err
		}
		cfg.FixturePath = filepath.Join(root, "db", "fixtures", "themes.yaml")
	}
	return cfg, nil
}

// Run loads the fixture and writes it through the configured game store.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	fx, err := LoadFixture(cfg.FixturePath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "close game store: %v\n", err)
		}
	}()

	themes, elements, err := Apply(ctx, store, fx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d themes and %d elements from %s\n", themes, elements, cfg.FixturePath)
	return nil
}

func openStore(cfg Config) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBDriver)) {
	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.Open(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// repoRoot walks up from this source file to the directory holding go.mod.
func repoRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("resolve runtime caller")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", filename)
		}
		dir = parent
	}
}
