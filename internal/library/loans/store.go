package loans

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	platformdb "github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// ---- Transactional Methods ----

// ExecBorrow は貸出の一連の流れを1トランザクションで行う。
// 1. 蔵書行をロック
// 2. 利用者の存在確認
// 3. 在庫・貸出上限チェック
// 4. available_copies を減算して貸出行を挿入
func (s *Store) ExecBorrow(ctx context.Context, isbn string, loan *Loan, limit int) (*loanRow, error) {
	var title string
	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		const bookQ = `
		SELECT book_id, title, available_copies
		FROM books WHERE isbn = ? FOR UPDATE`
		var available int
		if err := tx.QueryRowContext(ctx, bookQ, isbn).Scan(&loan.BookID, &title, &available); err != nil {
			if err == sql.ErrNoRows {
				return ErrBookNotFound()
			}
			return err
		}

		const patronQ = `SELECT 1 FROM patrons WHERE patron_id = ?`
		var one int
		if err := tx.QueryRowContext(ctx, patronQ, loan.PatronID).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return ErrPatronNotFound()
			}
			return err
		}

		if available <= 0 {
			return ErrNoCopiesAvailable()
		}

		const countQ = `SELECT COUNT(*) FROM loans WHERE patron_id = ? AND return_date IS NULL`
		var active int
		if err := tx.QueryRowContext(ctx, countQ, loan.PatronID).Scan(&active); err != nil {
			return err
		}
		if active >= limit {
			return ErrBorrowLimitExceeded(limit)
		}

		const decQ = `UPDATE books SET available_copies = available_copies - 1 WHERE book_id = ?`
		res, err := tx.ExecContext(ctx, decQ, loan.BookID)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff != 1 {
			return ErrInternal("failed to update books.available_copies")
		}

		const insQ = `
		INSERT INTO loans
		(loan_ulid, book_id, patron_id, borrow_date, due_date)
		VALUES (?, ?, ?, ?, ?)`
		ins, err := tx.ExecContext(ctx, insQ, loan.LoanULID, loan.BookID, loan.PatronID, loan.BorrowDate, loan.DueDate)
		if err != nil {
			return err
		}
		id, _ := ins.LastInsertId()
		loan.LoanID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &loanRow{Loan: *loan, ISBN: isbn, Title: title}, nil
}

// ExecReturn は (isbn, patron) の未返却貸出を閉じて在庫を戻す。
// 他の利用者の貸出に対しては決して成功しない
func (s *Store) ExecReturn(ctx context.Context, isbn, patronID string, returnedAt time.Time) (*loanRow, error) {
	var row loanRow
	err := platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		const loanQ = `
		SELECT l.loan_id, l.loan_ulid, l.book_id, l.patron_id, l.borrow_date, l.due_date, b.isbn, b.title
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		WHERE b.isbn = ? AND l.patron_id = ? AND l.return_date IS NULL
		LIMIT 1
		FOR UPDATE`
		err := tx.QueryRowContext(ctx, loanQ, isbn, patronID).Scan(
			&row.LoanID, &row.LoanULID, &row.BookID, &row.PatronID,
			&row.BorrowDate, &row.DueDate, &row.ISBN, &row.Title,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNoActiveLoan()
			}
			return err
		}

		const closeQ = `UPDATE loans SET return_date = ? WHERE loan_id = ? AND return_date IS NULL`
		res, err := tx.ExecContext(ctx, closeQ, returnedAt, row.LoanID)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff != 1 {
			return ErrNoActiveLoan()
		}

		const incQ = `UPDATE books SET available_copies = available_copies + 1 WHERE book_id = ? AND available_copies < total_copies`
		inc, err := tx.ExecContext(ctx, incQ, row.BookID)
		if err != nil {
			return err
		}
		if aff, _ := inc.RowsAffected(); aff != 1 {
			return ErrInternal("failed to update books.available_copies")
		}

		row.ReturnDate = sql.NullTime{Time: returnedAt, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ---- Queries ----

const selectLoan = `
	SELECT l.loan_id, l.loan_ulid, l.book_id, l.patron_id, l.borrow_date, l.due_date, l.return_date, b.isbn, b.title
	FROM loans l
	JOIN books b ON b.book_id = l.book_id`

func (s *Store) GetByID(ctx context.Context, id int64) (*loanRow, error) {
	q := selectLoan + ` WHERE l.loan_id = ?`
	return s.scanOne(ctx, q, id)
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*loanRow, error) {
	q := selectLoan + ` WHERE l.loan_ulid = ?`
	return s.scanOne(ctx, q, ulid)
}

func (s *Store) scanOne(ctx context.Context, q string, arg any) (*loanRow, error) {
	var r loanRow
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&r.LoanID, &r.LoanULID, &r.BookID, &r.PatronID,
		&r.BorrowDate, &r.DueDate, &r.ReturnDate, &r.ISBN, &r.Title,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("loan not found")
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context, f LoanFilter, p Page) ([]loanRow, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if f.ISBN != nil {
		where.WriteString(` AND b.isbn = ?`)
		args = append(args, *f.ISBN)
	}
	if f.PatronID != nil {
		where.WriteString(` AND l.patron_id = ?`)
		args = append(args, *f.PatronID)
	}
	if f.From != nil {
		where.WriteString(` AND l.borrow_date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		where.WriteString(` AND l.borrow_date < ?`)
		args = append(args, *f.To)
	}
	if f.ActiveOnly {
		where.WriteString(` AND l.return_date IS NULL`)
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`%s%s ORDER BY l.borrow_date %s LIMIT ? OFFSET ?`, selectLoan, where.String(), order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []loanRow
	for rows.Next() {
		var r loanRow
		if err := rows.Scan(
			&r.LoanID, &r.LoanULID, &r.BookID, &r.PatronID,
			&r.BorrowDate, &r.DueDate, &r.ReturnDate, &r.ISBN, &r.Title,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cntQ := `SELECT COUNT(*) FROM loans l JOIN books b ON b.book_id = l.book_id` + where.String()
	var total int64
	if err := s.db.QueryRowContext(ctx, cntQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

var _ LoanStore = (*Store)(nil)
