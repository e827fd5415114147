package fees

import (
	"context"
	"database/sql"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// FindActiveLoan: (patron, isbn) の未返却貸出を1件取得する
func (s *Store) FindActiveLoan(ctx context.Context, patronID, isbn string) (*OwedLoan, error) {
	const q = `
	SELECT l.loan_id, l.loan_ulid, b.isbn, b.title, l.due_date
	FROM loans l
	JOIN books b ON b.book_id = l.book_id
	WHERE b.isbn = ? AND l.patron_id = ? AND l.return_date IS NULL
	LIMIT 1`
	var o OwedLoan
	err := s.db.QueryRowContext(ctx, q, isbn, patronID).Scan(
		&o.LoanID, &o.LoanULID, &o.ISBN, &o.Title, &o.DueDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("no active loan for this patron and book")
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) InsertPayment(ctx context.Context, p *Payment) error {
	const q = `
	INSERT INTO fee_payments
	(payment_ulid, loan_id, patron_id, amount, transaction_id, refunded, paid_at)
	VALUES (?, ?, ?, ?, ?, 0, ?)`
	res, err := s.db.ExecContext(ctx, q,
		p.PaymentULID, p.LoanID, p.PatronID, p.Amount, p.TransactionID, p.PaidAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	p.PaymentID = id
	return nil
}

func (s *Store) GetByTransactionID(ctx context.Context, txn string) (*Payment, error) {
	const q = `
	SELECT payment_id, payment_ulid, loan_id, patron_id, amount, transaction_id, refunded, paid_at
	FROM fee_payments WHERE transaction_id = ?`
	var p Payment
	err := s.db.QueryRowContext(ctx, q, txn).Scan(
		&p.PaymentID, &p.PaymentULID, &p.LoanID, &p.PatronID, &p.Amount, &p.TransactionID, &p.Refunded, &p.PaidAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("payment not found")
		}
		return nil, err
	}
	return &p, nil
}

// 二重返金は refunded=0 条件で弾く
func (s *Store) MarkRefunded(ctx context.Context, paymentID int64) (int64, error) {
	const q = `UPDATE fee_payments SET refunded = 1 WHERE payment_id = ? AND refunded = 0`
	res, err := s.db.ExecContext(ctx, q, paymentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListByPatron(ctx context.Context, patronID string) ([]PaymentRecord, error) {
	const q = `
	SELECT p.payment_id, p.payment_ulid, p.loan_id, p.patron_id, p.amount, p.transaction_id, p.refunded, p.paid_at,
	       l.loan_ulid, b.isbn
	FROM fee_payments p
	JOIN loans l ON l.loan_id = p.loan_id
	JOIN books b ON b.book_id = l.book_id
	WHERE p.patron_id = ?
	ORDER BY p.paid_at DESC`
	rows, err := s.db.QueryContext(ctx, q, patronID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PaymentRecord
	for rows.Next() {
		var r PaymentRecord
		if err := rows.Scan(
			&r.PaymentID, &r.PaymentULID, &r.LoanID, &r.PatronID, &r.Amount, &r.TransactionID, &r.Refunded, &r.PaidAt,
			&r.LoanULID, &r.ISBN,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

var _ PaymentStore = (*Store)(nil)
