package loans

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/fees"
)

// ---- in-memory store ----

type memBook struct {
	bookID    int64
	title     string
	available int
	total     int
}

type memLoanStore struct {
	books   map[string]*memBook // key: isbn
	patrons map[string]bool
	loans   []*loanRow
	nextID  int64
}

func newMemLoanStore() *memLoanStore {
	return &memLoanStore{books: map[string]*memBook{}, patrons: map[string]bool{}}
}

func (s *memLoanStore) addBook(isbn, title string, copies int) {
	s.books[isbn] = &memBook{bookID: int64(len(s.books) + 1), title: title, available: copies, total: copies}
}

func (s *memLoanStore) activeCount(patronID string) int {
	n := 0
	for _, l := range s.loans {
		if l.PatronID == patronID && l.Active() {
			n++
		}
	}
	return n
}

func (s *memLoanStore) ExecBorrow(_ context.Context, isbn string, loan *Loan, limit int) (*loanRow, error) {
	b, ok := s.books[isbn]
	if !ok {
		return nil, ErrBookNotFound()
	}
	if !s.patrons[loan.PatronID] {
		return nil, ErrPatronNotFound()
	}
	if b.available <= 0 {
		return nil, ErrNoCopiesAvailable()
	}
	if s.activeCount(loan.PatronID) >= limit {
		return nil, ErrBorrowLimitExceeded(limit)
	}
	b.available--
	s.nextID++
	row := &loanRow{Loan: *loan, ISBN: isbn, Title: b.title}
	row.LoanID = s.nextID
	row.BookID = b.bookID
	s.loans = append(s.loans, row)
	cp := *row
	return &cp, nil
}

func (s *memLoanStore) ExecReturn(_ context.Context, isbn, patronID string, returnedAt time.Time) (*loanRow, error) {
	for _, l := range s.loans {
		if l.ISBN == isbn && l.PatronID == patronID && l.Active() {
			l.ReturnDate = sql.NullTime{Time: returnedAt, Valid: true}
			if b := s.books[isbn]; b != nil && b.available < b.total {
				b.available++
			}
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNoActiveLoan()
}

func (s *memLoanStore) GetByID(_ context.Context, id int64) (*loanRow, error) {
	for _, l := range s.loans {
		if l.LoanID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound("loan not found")
}

func (s *memLoanStore) GetByULID(_ context.Context, ulid string) (*loanRow, error) {
	for _, l := range s.loans {
		if l.LoanULID == ulid {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound("loan not found")
}

func (s *memLoanStore) List(_ context.Context, f LoanFilter, _ Page) ([]loanRow, int64, error) {
	var out []loanRow
	for _, l := range s.loans {
		if f.PatronID != nil && l.PatronID != *f.PatronID {
			continue
		}
		if f.ISBN != nil && l.ISBN != *f.ISBN {
			continue
		}
		if f.ActiveOnly && !l.Active() {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

var _ LoanStore = (*memLoanStore)(nil)

// ---- clock & id ----

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqID struct{ n int }

func (g *seqID) NewULID(_ time.Time) string {
	g.n++
	return fmt.Sprintf("01LOANULID%016d", g.n)
}

func newTestService(store LoanStore, clk *fixedClock) *Service {
	rules := Rules{LoanPeriodDays: 14, BorrowLimit: 5}
	return NewServiceWith(store, rules, fees.DefaultSchedule(), clk, &seqID{})
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, want, api.Code)
}

// ---- tests ----

func Test_Borrow(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("sets_due_date_from_loan_period", func(t *testing.T) {
		store := newMemLoanStore()
		store.addBook("9780000000001", "The Go Programming Language", 2)
		store.patrons["123456"] = true
		svc := newTestService(store, &fixedClock{now: now})

		res, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
		require.NoError(t, err)
		assert.Equal(t, now, res.BorrowDate)
		assert.Equal(t, now.AddDate(0, 0, 14), res.DueDate)
		assert.True(t, res.Active)
		assert.Equal(t, 1, store.books["9780000000001"].available)
	})

	t.Run("validates_request", func(t *testing.T) {
		svc := newTestService(newMemLoanStore(), &fixedClock{now: now})

		_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "", PatronID: "123456"})
		assertCode(t, err, CodeInvalidArgument)

		_, err = svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "12345"})
		assertCode(t, err, CodeInvalidArgument)
	})

	t.Run("unknown_book_and_patron", func(t *testing.T) {
		store := newMemLoanStore()
		store.addBook("9780000000001", "x", 1)
		svc := newTestService(store, &fixedClock{now: now})

		_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9999999999999", PatronID: "123456"})
		assertCode(t, err, CodeBookNotFound)

		_, err = svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
		assertCode(t, err, CodePatronNotFound)
	})

	t.Run("enforces_borrow_limit", func(t *testing.T) {
		store := newMemLoanStore()
		store.patrons["123456"] = true
		for i := 0; i < 6; i++ {
			store.addBook(fmt.Sprintf("978000000000%d", i), fmt.Sprintf("vol %d", i), 1)
		}
		svc := newTestService(store, &fixedClock{now: now})

		for i := 0; i < 5; i++ {
			_, err := svc.Borrow(ctx, BorrowRequest{ISBN: fmt.Sprintf("978000000000%d", i), PatronID: "123456"})
			require.NoError(t, err)
		}
		_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000005", PatronID: "123456"})
		assertCode(t, err, CodeBorrowLimit)

		// 1冊返せばまた借りられる
		_, err = svc.Return(ctx, ReturnRequest{ISBN: "9780000000000", PatronID: "123456"})
		require.NoError(t, err)
		_, err = svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000005", PatronID: "123456"})
		assert.NoError(t, err)
	})
}

// 在庫1冊を2人で取り合うケース
func Test_BorrowReturn_SingleCopyContention(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000123", "Distributed Systems", 1)
	store.patrons["111111"] = true
	store.patrons["222222"] = true
	svc := newTestService(store, &fixedClock{now: now})

	_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000123", PatronID: "111111"})
	require.NoError(t, err)
	assert.Equal(t, 0, store.books["9780000000123"].available)

	// 在庫ゼロ
	_, err = svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000123", PatronID: "222222"})
	assertCode(t, err, CodeNoCopies)

	// 借りていない利用者の返却。状態は変わらない
	_, err = svc.Return(ctx, ReturnRequest{ISBN: "9780000000123", PatronID: "222222"})
	assertCode(t, err, CodeNoActiveLoan)
	assert.Equal(t, 0, store.books["9780000000123"].available)

	res, err := svc.Return(ctx, ReturnRequest{ISBN: "9780000000123", PatronID: "111111"})
	require.NoError(t, err)
	assert.Equal(t, "111111", res.PatronID)
	assert.Equal(t, 1, store.books["9780000000123"].available)

	// 返却済みでもう一度返すことはできない
	_, err = svc.Return(ctx, ReturnRequest{ISBN: "9780000000123", PatronID: "111111"})
	assertCode(t, err, CodeNoActiveLoan)
}

func Test_Return_LateFee(t *testing.T) {
	borrowedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000001", "x", 1)
	store.patrons["123456"] = true
	clk := &fixedClock{now: borrowedAt}
	svc := newTestService(store, clk)

	_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)

	// 期限14日 + 10日遅れ。最初の7日0.50、以後1.00
	clk.now = borrowedAt.AddDate(0, 0, 24)
	res, err := svc.Return(ctx, ReturnRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.DaysOverdue)
	assert.InDelta(t, 6.50, res.LateFee, 0.001)
}

func Test_Return_OnTimeIsFree(t *testing.T) {
	borrowedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000001", "x", 1)
	store.patrons["123456"] = true
	clk := &fixedClock{now: borrowedAt}
	svc := newTestService(store, clk)

	_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)

	clk.now = borrowedAt.AddDate(0, 0, 14)
	res, err := svc.Return(ctx, ReturnRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.DaysOverdue)
	assert.Zero(t, res.LateFee)
}

func Test_GetLoanByKey(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000001", "x", 1)
	store.patrons["123456"] = true
	svc := newTestService(store, &fixedClock{now: now})

	created, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)

	byID, err := svc.GetLoanByKey(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, created.LoanULID, byID.LoanULID)

	byULID, err := svc.GetLoanByKey(ctx, created.LoanULID)
	require.NoError(t, err)
	assert.Equal(t, created.LoanID, byULID.LoanID)

	_, err = svc.GetLoanByKey(ctx, "999")
	assertCode(t, err, CodeNotFound)
}

func Test_GetLoanFee(t *testing.T) {
	borrowedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000001", "x", 1)
	store.patrons["123456"] = true
	clk := &fixedClock{now: borrowedAt}
	svc := newTestService(store, clk)

	created, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)

	// 期限3日前: 料金ゼロ
	clk.now = borrowedAt.AddDate(0, 0, 11)
	fee, err := svc.GetLoanFee(ctx, created.LoanULID)
	require.NoError(t, err)
	assert.Equal(t, 0, fee.DaysOverdue)
	assert.Zero(t, fee.FeeAmount)

	// 期限3日後
	clk.now = borrowedAt.AddDate(0, 0, 17)
	fee, err = svc.GetLoanFee(ctx, created.LoanULID)
	require.NoError(t, err)
	assert.Equal(t, 3, fee.DaysOverdue)
	assert.InDelta(t, 1.50, fee.FeeAmount, 0.001)

	// 返却後は対象外
	_, err = svc.Return(ctx, ReturnRequest{ISBN: "9780000000001", PatronID: "123456"})
	require.NoError(t, err)
	_, err = svc.GetLoanFee(ctx, created.LoanULID)
	assertCode(t, err, CodeNoActiveLoan)
}

func Test_ListLoans_Filter(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := newMemLoanStore()
	store.addBook("9780000000001", "a", 3)
	store.patrons["111111"] = true
	store.patrons["222222"] = true
	svc := newTestService(store, &fixedClock{now: now})

	_, err := svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "111111"})
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, BorrowRequest{ISBN: "9780000000001", PatronID: "222222"})
	require.NoError(t, err)
	_, err = svc.Return(ctx, ReturnRequest{ISBN: "9780000000001", PatronID: "222222"})
	require.NoError(t, err)

	p1 := "111111"
	rows, total, err := svc.ListLoans(ctx, LoanFilter{PatronID: &p1}, Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "111111", rows[0].PatronID)

	rows, total, err = svc.ListLoans(ctx, LoanFilter{ActiveOnly: true}, Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, rows[0].Active)
}
