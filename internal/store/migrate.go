package store

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// runMigrations applies the embedded goose migrations for dialect from
// migrations/<dir>.
func runMigrations(ctx context.Context, conn *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations, "migrations/"+dir)
	if err != nil {
		return eris.Wrap(err, "store: migrations fs")
	}
	provider, err := goose.NewProvider(dialect, conn, fsys)
	if err != nil {
		return eris.Wrap(err, "store: goose provider")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return eris.Wrap(err, "store: migrate up")
	}
	for _, r := range results {
		zap.L().Info("applied migration",
			zap.String("dialect", dir),
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}
