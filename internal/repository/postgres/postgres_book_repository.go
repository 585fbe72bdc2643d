package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const (
	bookTracer  = "book-repository"
	bookColumns = `id, owner_id, title, author, description, isbn, cover_image, genre, condition, rental_price, status, location, pages, published_year, created_at, updated_at`
)

type PostgresBookRepository struct {
	db *sql.DB
}

func NewPostgresBookRepository(db *sql.DB) *PostgresBookRepository {
	return &PostgresBookRepository{db: db}
}

func (r *PostgresBookRepository) Create(ctx context.Context, book *models.Book) (err error) {
	ctx, finish := observe(ctx, bookTracer, "CreateBook")
	defer func() { finish(err) }()

	if book == nil {
		err = pkgerrors.ErrNilBook
		slog.Error("failed to create book", "method", "Create", "error", err)
		return err
	}

	query := `INSERT INTO books (owner_id, title, author, description, isbn, cover_image, genre, condition, rental_price, status, location, pages, published_year) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		book.OwnerID, book.Title, book.Author, book.Description, book.ISBN, book.CoverImage,
		pq.Array(book.Genre), book.Condition, book.RentalPrice, book.Status, book.Location,
		book.Pages, book.PublishedYear,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		slog.Error("failed to create book", "method", "Create", "owner_id", book.OwnerID, "title", book.Title, "error", err)
		return fmt.Errorf("failed to create book: %w", err)
	}

	slog.Info("book created", "method", "Create", "id", book.ID, "owner_id", book.OwnerID)
	return nil
}

func (r *PostgresBookRepository) GetByID(ctx context.Context, id string) (_ *models.Book, err error) {
	ctx, finish := observe(ctx, bookTracer, "GetBookByID", attribute.String("book_id", id))
	defer func() { finish(err) }()

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("book not found", "method", "GetByID", "book_id", id)
		return nil, pkgerrors.ErrBookNotFound
	}
	if err != nil {
		slog.Error("failed to get book by id", "method", "GetByID", "book_id", id, "error", err)
		return nil, fmt.Errorf("failed to get book by id: %w", err)
	}
	return book, nil
}

func (r *PostgresBookRepository) Update(ctx context.Context, book *models.Book) (err error) {
	ctx, finish := observe(ctx, bookTracer, "UpdateBook")
	defer func() { finish(err) }()

	if book == nil {
		err = pkgerrors.ErrNilBook
		return err
	}

	query := `UPDATE books SET title = $1, author = $2, description = $3, isbn = $4, cover_image = $5, genre = $6, condition = $7, rental_price = $8, status = $9, location = $10, pages = $11, published_year = $12, updated_at = NOW() WHERE id = $13 RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query,
		book.Title, book.Author, book.Description, book.ISBN, book.CoverImage,
		pq.Array(book.Genre), book.Condition, book.RentalPrice, book.Status, book.Location,
		book.Pages, book.PublishedYear, book.ID,
	).Scan(&book.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrBookNotFound
	}
	if err != nil {
		slog.Error("failed to update book", "method", "Update", "book_id", book.ID, "error", err)
		return fmt.Errorf("failed to update book: %w", err)
	}

	slog.Info("book updated", "method", "Update", "book_id", book.ID)
	return nil
}

func (r *PostgresBookRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, finish := observe(ctx, bookTracer, "DeleteBook", attribute.String("book_id", id))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to delete book", "method", "Delete", "book_id", id, "error", err)
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrBookNotFound
	}

	slog.Info("book deleted", "method", "Delete", "book_id", id)
	return nil
}

func (r *PostgresBookRepository) List(ctx context.Context, filter models.BookFilter) (_ []models.Book, err error) {
	ctx, finish := observe(ctx, bookTracer, "ListBooks")
	defer func() { finish(err) }()

	query := `SELECT ` + bookColumns + ` FROM books WHERE 1=1`
	var args []any
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Genre != "" {
		args = append(args, pq.Array([]string{filter.Genre}))
		query += fmt.Sprintf(" AND genre @> $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR author ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list books", "method", "List", "error", err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *book)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	slog.Debug("books listed", "method", "List", "count", len(books), "owner_id", filter.OwnerID)
	return books, nil
}

func (r *PostgresBookRepository) UpdateStatus(ctx context.Context, id string, status models.BookStatus) (err error) {
	ctx, finish := observe(ctx, bookTracer, "UpdateBookStatus",
		attribute.String("book_id", id), attribute.String("status", string(status)))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE books SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		slog.Error("failed to update book status", "method", "UpdateStatus", "book_id", id, "error", err)
		return fmt.Errorf("failed to update book status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrBookNotFound
	}
	return nil
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		b     models.Book
		pages sql.NullInt32
		year  sql.NullInt32
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Description, &b.ISBN, &b.CoverImage,
		pq.Array(&b.Genre), &b.Condition, &b.RentalPrice, &b.Status, &b.Location, &pages, &year,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if pages.Valid {
		b.Pages = &pages.Int32
	}
	if year.Valid {
		b.PublishedYear = &year.Int32
	}
	return &b, nil
}
