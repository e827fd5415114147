package loans

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/fees"
)

// ===== インターフェース群 =====

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type LoanStore interface {
	ExecBorrow(ctx context.Context, isbn string, loan *Loan, limit int) (*loanRow, error)
	ExecReturn(ctx context.Context, isbn, patronID string, returnedAt time.Time) (*loanRow, error)
	GetByID(ctx context.Context, id int64) (*loanRow, error)
	GetByULID(ctx context.Context, ulid string) (*loanRow, error)
	List(ctx context.Context, f LoanFilter, p Page) ([]loanRow, int64, error)
}

// Rules は貸出期間と冊数上限
type Rules struct {
	LoanPeriodDays int
	BorrowLimit    int
}

// ===== Service本体 =====

type Service struct {
	store    LoanStore
	rules    Rules
	schedule fees.Schedule
	clock    Clock
	id       IDGen
}

func NewService(db *sql.DB, rules Rules, schedule fees.Schedule) *Service {
	return &Service{
		store:    NewStore(db),
		rules:    rules,
		schedule: schedule,
		clock:    realClock{},
		id:       ulidGen{},
	}
}

func NewServiceWith(store LoanStore, rules Rules, schedule fees.Schedule, clock Clock, id IDGen) *Service {
	return &Service{store: store, rules: rules, schedule: schedule, clock: clock, id: id}
}

// 貸出登録。蔵書の在庫1冊を引き当てて貸出期限を設定する
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (*LoanResponse, error) {
	if strings.TrimSpace(req.ISBN) == "" {
		return nil, ErrInvalid("isbn is required")
	}
	if !isValidPatronID(req.PatronID) {
		return nil, ErrInvalid("patron_id must be exactly 6 digits")
	}

	now := s.clock.Now()
	loan := &Loan{
		LoanULID:   s.id.NewULID(now),
		PatronID:   req.PatronID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, s.rules.LoanPeriodDays),
	}

	row, err := s.store.ExecBorrow(ctx, req.ISBN, loan, s.rules.BorrowLimit)
	if err != nil {
		return nil, err
	}

	resp := loanToDTO(row)
	return &resp, nil
}

// 返却登録。(isbn, patron) の未返却貸出を閉じ、在庫を戻し、延滞料金を確定する
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*ReturnResponse, error) {
	if strings.TrimSpace(req.ISBN) == "" {
		return nil, ErrInvalid("isbn is required")
	}
	if !isValidPatronID(req.PatronID) {
		return nil, ErrInvalid("patron_id must be exactly 6 digits")
	}

	now := s.clock.Now()
	row, err := s.store.ExecReturn(ctx, req.ISBN, req.PatronID, now)
	if err != nil {
		return nil, err
	}

	days := fees.DaysOverdue(row.DueDate, now)
	return &ReturnResponse{
		LoanULID:    row.LoanULID,
		ISBN:        row.ISBN,
		Title:       row.Title,
		PatronID:    row.PatronID,
		ReturnedAt:  now,
		DaysOverdue: days,
		LateFee:     s.schedule.Amount(days),
	}, nil
}

// 貸出単一取得（ID or ULID）
func (s *Service) GetLoanByKey(ctx context.Context, key string) (*LoanResponse, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}

	row, err := s.resolveLoan(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := loanToDTO(row)
	return &resp, nil
}

// 未返却貸出の現時点での延滞状況
func (s *Service) GetLoanFee(ctx context.Context, key string) (*LoanFeeResponse, error) {
	row, err := s.resolveLoan(ctx, key)
	if err != nil {
		return nil, err
	}
	if !row.Active() {
		return nil, ErrNoActiveLoan()
	}

	days := fees.DaysOverdue(row.DueDate, s.clock.Now())
	return &LoanFeeResponse{
		LoanULID:    row.LoanULID,
		ISBN:        row.ISBN,
		PatronID:    row.PatronID,
		DaysOverdue: days,
		FeeAmount:   s.schedule.Amount(days),
	}, nil
}

// 貸出一覧
func (s *Service) ListLoans(ctx context.Context, f LoanFilter, p Page) ([]LoanResponse, int64, error) {
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]LoanResponse, 0, len(rows))
	for i := range rows {
		out = append(out, loanToDTO(&rows[i]))
	}
	return out, total, nil
}

func (s *Service) resolveLoan(ctx context.Context, key string) (*loanRow, error) {
	// 数値として解釈できればID検索、それ以外は loan_ulid
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return s.store.GetByID(ctx, id)
	}
	return s.store.GetByULID(ctx, key)
}

func isValidPatronID(id string) bool {
	if len(id) != 6 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
