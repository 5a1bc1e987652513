package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rockly/rockly/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUploadNotFound is returned when no upload record exists for an ID.
var ErrUploadNotFound = fmt.Errorf("upload not found")

// MySQLClient wraps the upload-metadata registry with tracing
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient initializes a new MySQL client
func NewMySQLClient(dsn string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// CreateUpload inserts upload metadata with tracing
func (mc *MySQLClient) CreateUpload(ctx context.Context, upload *models.Upload) error {
	ctx, span := tracer.Start(ctx, "mysql.create_upload",
		trace.WithAttributes(
			attribute.String("file_id", upload.ID),
			attribute.String("filename", upload.Filename),
			attribute.Int64("size", upload.Size),
		),
	)
	defer span.End()

	query := `INSERT INTO uploads (id, filename, size, content_type, object_key, sha256, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := mc.db.ExecContext(ctx, query,
		upload.ID, upload.Filename, upload.Size, upload.ContentType,
		upload.ObjectKey, upload.SHA256, upload.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	span.SetAttributes(attribute.Bool("insert_success", true))
	return nil
}

// GetUpload retrieves upload metadata by ID with tracing
func (mc *MySQLClient) GetUpload(ctx context.Context, fileID string) (*models.Upload, error) {
	ctx, span := tracer.Start(ctx, "mysql.get_upload",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	query := `SELECT id, filename, size, content_type, object_key, sha256, created_at
			  FROM uploads WHERE id = ?`

	var upload models.Upload
	err := mc.db.QueryRowContext(ctx, query, fileID).Scan(
		&upload.ID,
		&upload.Filename,
		&upload.Size,
		&upload.ContentType,
		&upload.ObjectKey,
		&upload.SHA256,
		&upload.CreatedAt,
	)

	if err == sql.ErrNoRows {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, ErrUploadNotFound
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}

	span.SetAttributes(attribute.Bool("found", true))
	return &upload, nil
}
