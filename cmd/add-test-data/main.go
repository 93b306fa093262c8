package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/ulikunitz/xz"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/RichardKnop/litefile/internal/pkg/logging"
)

var CLI struct {
	Output     string `arg:"" help:"Database file to write, a .xz suffix compresses it."`
	Users      int    `help:"Number of users to insert." default:"1000"`
	Posts      int    `help:"Number of posts per user." default:"3"`
	PageSize   int    `name:"page-size" help:"Page size of the new database." default:"4096"`
	AutoVacuum string `name:"auto-vacuum" help:"Auto-vacuum mode." enum:"none,full,incremental" default:"none"`
	Encoding   string `help:"Text encoding." enum:"UTF-8,UTF-16le,UTF-16be" default:"UTF-8"`
	Seed       uint64 `help:"Seed of the fake data generator, 0 picks a random one." default:"0"`
	LogLevel   string `name:"log-level" help:"Log level." env:"LOG_LEVEL" default:"info"`
}

const schemaSQL = `CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT UNIQUE,
	name TEXT NOT NULL,
	bio TEXT
);
CREATE TABLE posts (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users (id),
	title TEXT NOT NULL,
	body TEXT
);
CREATE INDEX posts_user ON posts (user_id);
CREATE VIEW user_posts AS SELECT users.name, posts.title FROM users JOIN posts ON posts.user_id = users.id;`

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("add-test-data"),
		kong.Description("Write a sample SQLite database filled with fake users and posts."),
		kong.UsageOnError(),
	)

	logger, err := logging.New(CLI.LogLevel)
	kctx.FatalIfErrorf(err)

	kctx.FatalIfErrorf(run(context.Background(), logger))
}

func run(ctx context.Context, logger *zap.Logger) error {
	compress := strings.HasSuffix(strings.ToLower(CLI.Output), ".xz")
	dbPath := CLI.Output
	if compress {
		dbPath = strings.TrimSuffix(dbPath, filepath.Ext(dbPath))
	}

	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := generate(ctx, logger, dbPath); err != nil {
		return err
	}
	if !compress {
		logger.Info("database written", zap.String("path", dbPath))
		return nil
	}

	if err := compressFile(dbPath, CLI.Output); err != nil {
		return err
	}
	logger.Info("compressed database written", zap.String("path", CLI.Output))
	return os.Remove(dbPath)
}

func generate(ctx context.Context, logger *zap.Logger, dbPath string) (err error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, db.Close())
	}()
	// pragmas below only apply to the connection that creates the file
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA page_size = %d", CLI.PageSize),
		fmt.Sprintf("PRAGMA auto_vacuum = %s", strings.ToUpper(CLI.AutoVacuum)),
		fmt.Sprintf("PRAGMA encoding = '%s'", CLI.Encoding),
	}
	for _, pragma := range append(pragmas, schemaSQL) {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertFakeData(ctx, tx, gofakeit.New(CLI.Seed)); err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Info("inserted fake data",
		zap.Int("users", CLI.Users),
		zap.Int("posts", CLI.Users*CLI.Posts),
	)
	return nil
}

func insertFakeData(ctx context.Context, tx *sql.Tx, faker *gofakeit.Faker) error {
	insertUser, err := tx.PrepareContext(ctx, "INSERT INTO users (email, name, bio) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insertUser.Close()

	insertPost, err := tx.PrepareContext(ctx, "INSERT INTO posts (user_id, title, body) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insertPost.Close()

	for i := range CLI.Users {
		bio := fmt.Sprintf("%s at %s, %s", faker.JobTitle(), faker.Company(), faker.City())
		result, err := insertUser.ExecContext(ctx, fmt.Sprintf("%d.%s", i, faker.Email()), faker.Name(), bio)
		if err != nil {
			return err
		}
		userID, err := result.LastInsertId()
		if err != nil {
			return err
		}

		for j := range CLI.Posts {
			// some posts are long enough to spill onto overflow pages
			body := strings.Repeat(faker.Sentence(12)+" ", 1+j*j*20)
			if _, err := insertPost.ExecContext(ctx, userID, faker.Sentence(4), body); err != nil {
				return err
			}
		}
	}
	return nil
}

func compressFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	xzWriter, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(xzWriter, in); err != nil {
		return err
	}
	return xzWriter.Close()
}
