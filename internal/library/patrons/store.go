package patrons

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

func (s *Store) Insert(ctx context.Context, p *Patron) error {
	const q = `
	INSERT INTO patrons (patron_id, name, created_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)`
	_, err := s.db.ExecContext(ctx, q, p.PatronID, p.Name)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return ErrConflict("patron_id already registered")
		}
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Patron, error) {
	const q = `SELECT patron_id, name, created_at FROM patrons WHERE patron_id = ?`
	var p Patron
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&p.PatronID, &p.Name, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("patron not found")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) List(ctx context.Context, p Page) ([]Patron, int64, error) {
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
	q := fmt.Sprintf(`SELECT patron_id, name, created_at FROM patrons ORDER BY patron_id %s LIMIT ? OFFSET ?`, order)

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Patron
	for rows.Next() {
		var it Patron
		if err := rows.Scan(&it.PatronID, &it.Name, &it.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patrons`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Snapshot はレポートの整合性のため利用者と未返却貸出を同一Txで読む
func (s *Store) Snapshot(ctx context.Context, id string) (*Patron, []ActiveLoan, error) {
	var p Patron
	var loans []ActiveLoan

	err := platformdb.ReadOnly(ctx, s.db, func(ctx context.Context, tx platformdb.DBTX) error {
		const pq = `SELECT patron_id, name, created_at FROM patrons WHERE patron_id = ?`
		if err := tx.QueryRowContext(ctx, pq, id).Scan(&p.PatronID, &p.Name, &p.CreatedAt); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound("patron not found")
			}
			return err
		}

		const lq = `
		SELECT l.loan_id, l.loan_ulid, b.isbn, b.title, b.author, l.borrow_date, l.due_date
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		WHERE l.patron_id = ? AND l.return_date IS NULL
		ORDER BY l.due_date ASC`
		rows, err := tx.QueryContext(ctx, lq, id)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l ActiveLoan
			if err := rows.Scan(&l.LoanID, &l.LoanULID, &l.ISBN, &l.Title, &l.Author, &l.BorrowDate, &l.DueDate); err != nil {
				return err
			}
			loans = append(loans, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return &p, loans, nil
}

var _ PatronStore = (*Store)(nil)
