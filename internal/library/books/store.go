package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"

	platformdb "github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books
	(isbn, title, author, total_copies, available_copies, created_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`
	res, err := s.db.ExecContext(ctx, q, b.ISBN, b.Title, b.Author, b.TotalCopies, b.AvailableCopies)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return ErrDuplicate("a book with this isbn already exists")
		}
		return err
	}
	id, _ := res.LastInsertId()
	b.BookID = id
	return nil
}

func (s *Store) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	const q = `
	SELECT book_id, isbn, title, author, total_copies, available_copies, created_at
	FROM books WHERE isbn = ?`
	var b Book
	err := s.db.QueryRowContext(ctx, q, isbn).Scan(
		&b.BookID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("book not found")
		}
		return nil, err
	}
	return &b, nil
}

// 登録順の一覧。Order は book_id に対する並び
func (s *Store) List(ctx context.Context, p Page) ([]Book, int64, error) {
	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	q := fmt.Sprintf(`
	SELECT book_id, isbn, title, author, total_copies, available_copies, created_at
	FROM books ORDER BY book_id %s LIMIT ? OFFSET ?`, order)

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.BookID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// 検索用の全件取得（絞り込みはアプリ側で行う）
func (s *Store) ListAll(ctx context.Context) ([]Book, error) {
	const q = `
	SELECT book_id, isbn, title, author, total_copies, available_copies, created_at
	FROM books ORDER BY book_id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.BookID, &b.ISBN, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// UpdateByISBN は書誌情報と所蔵数を更新する。
// total_copies の変更は貸出中冊数を下回れない（available を行ロックの上で付け替える）
func (s *Store) UpdateByISBN(ctx context.Context, isbn string, in UpdateBookRequest) (*Book, error) {
	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		const lockQ = `
		SELECT book_id, total_copies, available_copies
		FROM books WHERE isbn = ? FOR UPDATE`
		var bookID int64
		var total, available int
		if err := tx.QueryRowContext(ctx, lockQ, isbn).Scan(&bookID, &total, &available); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound("book not found")
			}
			return err
		}

		sets := []string{}
		args := []any{}
		if in.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *in.Title)
		}
		if in.Author != nil {
			sets = append(sets, "author = ?")
			args = append(args, *in.Author)
		}
		if in.TotalCopies != nil {
			onLoan := total - available
			if *in.TotalCopies < onLoan {
				return ErrConflict("total_copies below copies currently on loan")
			}
			sets = append(sets, "total_copies = ?", "available_copies = ?")
			args = append(args, *in.TotalCopies, *in.TotalCopies-onLoan)
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, bookID)
		q := fmt.Sprintf(`UPDATE books SET %s WHERE book_id = ?`, strings.Join(sets, ", "))
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return ErrConflict("no row updated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByISBN(ctx, isbn)
}
