package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat is fixed-width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]domain.Deployment, error) {
	return listDeployments(ctx, s.db, opts)
}

func (s *SQLiteStore) GetActiveDeployment(ctx context.Context, identity, projectRoot string) (*domain.Deployment, error) {
	return getActiveDeployment(ctx, s.db, identity, projectRoot)
}

// WithTx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]domain.Deployment, error) {
	return listDeployments(ctx, s.tx, opts)
}

func (s *txSQLiteStore) GetActiveDeployment(ctx context.Context, identity, projectRoot string) (*domain.Deployment, error) {
	return getActiveDeployment(ctx, s.tx, identity, projectRoot)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Deployment Operations
// =============================================================================

// deploymentRow represents a deployment row in the database.
type deploymentRow struct {
	ID           string  `db:"id"`
	Identity     string  `db:"identity"`
	ProjectRoot  string  `db:"project_root"`
	Template     string  `db:"template"`
	Strategy     string  `db:"strategy"`
	Status       string  `db:"status"`
	Container    *string `db:"container"`
	ErrorMessage string  `db:"error_message"`
	BuildLog     string  `db:"build_log"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
}

func deploymentToRow(op string, deployment *domain.Deployment) (map[string]any, error) {
	var container *string
	if deployment.Container != nil {
		data, err := json.Marshal(deployment.Container)
		if err != nil {
			return nil, NewStoreError(op, "deployment", deployment.ID, "failed to serialize container", ErrInvalidData)
		}
		s := string(data)
		container = &s
	}

	return map[string]any{
		"id":            deployment.ID,
		"identity":      deployment.Identity,
		"project_root":  deployment.ProjectRoot,
		"template":      deployment.Template,
		"strategy":      deployment.Strategy,
		"status":        string(deployment.Status),
		"container":     container,
		"error_message": deployment.ErrorMessage,
		"build_log":     deployment.BuildLog,
		"created_at":    deployment.CreatedAt.UTC().Format(timeFormat),
		"updated_at":    deployment.UpdatedAt.UTC().Format(timeFormat),
	}, nil
}

func createDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	row, err := deploymentToRow("CreateDeployment", deployment)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deployments (
			id, identity, project_root, template, strategy, status,
			container, error_message, build_log, created_at, updated_at
		) VALUES (
			:id, :identity, :project_root, :template, :strategy, :status,
			:container, :error_message, :build_log, :created_at, :updated_at
		)`

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", "deployment", deployment.ID, "deployment with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*domain.Deployment, error) {
	query := `SELECT * FROM deployments WHERE id = ?`

	var row deploymentRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", "deployment", id, "deployment not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", "deployment", id, err.Error(), err)
	}

	return rowToDeployment(&row)
}

func updateDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	deployment.UpdatedAt = time.Now().UTC()

	row, err := deploymentToRow("UpdateDeployment", deployment)
	if err != nil {
		return err
	}

	query := `
		UPDATE deployments SET
			strategy = :strategy,
			status = :status,
			container = :container,
			error_message = :error_message,
			build_log = :build_log,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, err.Error(), err)
	}
	if rows == 0 {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, "deployment not found", ErrNotFound)
	}

	return nil
}

func getActiveDeployment(ctx context.Context, exec executor, identity, projectRoot string) (*domain.Deployment, error) {
	query := `
		SELECT * FROM deployments
		WHERE identity = ? AND project_root = ? AND status = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`

	var row deploymentRow
	err := exec.GetContext(ctx, &row, query, identity, projectRoot, string(domain.StatusRunning))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetActiveDeployment", "deployment", projectRoot, "no active deployment", ErrNotFound)
		}
		return nil, NewStoreError("GetActiveDeployment", "deployment", projectRoot, err.Error(), err)
	}

	return rowToDeployment(&row)
}

func listDeployments(ctx context.Context, exec executor, opts ListOptions) ([]domain.Deployment, error) {
	opts = opts.Normalize()

	query := `SELECT * FROM deployments`
	var args []any
	if opts.Identity != "" {
		query += ` WHERE identity = ?`
		args = append(args, opts.Identity)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	var rows []deploymentRow
	err := exec.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, NewStoreError("ListDeployments", "deployment", "", err.Error(), err)
	}

	deployments := make([]domain.Deployment, 0, len(rows))
	for _, row := range rows {
		deployment, err := rowToDeployment(&row)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *deployment)
	}

	return deployments, nil
}

func rowToDeployment(row *deploymentRow) (*domain.Deployment, error) {
	createdAt, _ := time.Parse(timeFormat, row.CreatedAt)
	updatedAt, _ := time.Parse(timeFormat, row.UpdatedAt)

	var container *domain.Container
	if row.Container != nil && *row.Container != "" && *row.Container != "null" {
		container = &domain.Container{}
		if err := json.Unmarshal([]byte(*row.Container), container); err != nil {
			return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse container", ErrInvalidData)
		}
	}

	return &domain.Deployment{
		ID:           row.ID,
		Identity:     row.Identity,
		ProjectRoot:  row.ProjectRoot,
		Template:     row.Template,
		Strategy:     row.Strategy,
		Status:       domain.DeploymentStatus(row.Status),
		Container:    container,
		ErrorMessage: row.ErrorMessage,
		BuildLog:     row.BuildLog,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
