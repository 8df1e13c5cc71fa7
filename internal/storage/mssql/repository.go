package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/storage"
)

const schema = `
IF OBJECT_ID(N'TblUsageLog', N'U') IS NULL
	CREATE TABLE TblUsageLog (
		[ID]        NVARCHAR(36)  NOT NULL PRIMARY KEY,
		[UserID]    BIGINT        NOT NULL,
		[Username]  NVARCHAR(256) NOT NULL,
		[Command]   NVARCHAR(512) NOT NULL,
		[CreatedAt] DATETIME2     NOT NULL
	);
IF OBJECT_ID(N'TblUsageCounter', N'U') IS NULL
	CREATE TABLE TblUsageCounter (
		[CounterKey] NVARCHAR(64) NOT NULL PRIMARY KEY,
		[Day]        DATE         NOT NULL,
		[Count]      INT          NOT NULL
	);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create usage tables: %w", err)
	}
	return nil
}

func (r *Repository) RecordInteraction(ctx context.Context, in *storage.Interaction) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		INSERT INTO TblUsageLog ([ID], [UserID], [Username], [Command], [CreatedAt])
		VALUES (@ID, @UserID, @Username, @Command, @CreatedAt)
	`

	_, err := r.db.ExecContext(ctx, query,
		sql.Named("ID", in.ID),
		sql.Named("UserID", in.UserID),
		sql.Named("Username", in.Username),
		sql.Named("Command", in.Command),
		sql.Named("CreatedAt", in.CreatedAt.UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

func (r *Repository) ListInteractions(ctx context.Context) ([]storage.Interaction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT [ID], [UserID], [Username], [Command], [CreatedAt]
		FROM TblUsageLog
		ORDER BY [CreatedAt]
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	var out []storage.Interaction
	for rows.Next() {
		var in storage.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.Username, &in.Command, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}
	return out, nil
}

// IncrementUsage runs one MERGE under HOLDLOCK so concurrent callers never
// both take the last slot. No output row means the limit was already reached.
func (r *Repository) IncrementUsage(ctx context.Context, key string, day time.Time, limit int) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO TblUsageCounter WITH (HOLDLOCK) AS target
		USING (SELECT @Key AS CounterKey) AS source
		ON target.[CounterKey] = source.CounterKey
		WHEN MATCHED AND (target.[Day] <> @Day OR @Limit <= 0 OR target.[Count] < @Limit) THEN
			UPDATE SET
				[Count] = CASE WHEN target.[Day] <> @Day THEN 1 ELSE target.[Count] + 1 END,
				[Day] = @Day
		WHEN NOT MATCHED THEN
			INSERT ([CounterKey], [Day], [Count]) VALUES (@Key, @Day, 1)
		OUTPUT inserted.[Count];
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dayValue := storage.Day(day).Format(time.DateOnly)

	var count int
	err = tx.QueryRowContext(ctx, query,
		sql.Named("Key", key),
		sql.Named("Day", dayValue),
		sql.Named("Limit", limit),
	).Scan(&count)

	allowed := true
	if errors.Is(err, sql.ErrNoRows) {
		allowed = false
		err = tx.QueryRowContext(ctx,
			`SELECT [Count] FROM TblUsageCounter WHERE [CounterKey] = @Key`,
			sql.Named("Key", key),
		).Scan(&count)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit usage: %w", err)
	}
	return count, allowed, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
