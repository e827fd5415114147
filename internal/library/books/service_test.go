package books_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/books"
)

// ---- in-memory store ----

type memBookStore struct {
	items  []books.Book
	nextID int64
}

func (s *memBookStore) Insert(_ context.Context, b *books.Book) error {
	for _, it := range s.items {
		if it.ISBN == b.ISBN {
			return books.ErrDuplicate("a book with this isbn already exists")
		}
	}
	s.nextID++
	b.BookID = s.nextID
	s.items = append(s.items, *b)
	return nil
}

func (s *memBookStore) GetByISBN(_ context.Context, isbn string) (*books.Book, error) {
	for i := range s.items {
		if s.items[i].ISBN == isbn {
			cp := s.items[i]
			return &cp, nil
		}
	}
	return nil, books.ErrNotFound("book not found")
}

func (s *memBookStore) List(_ context.Context, p books.Page) ([]books.Book, int64, error) {
	out := make([]books.Book, len(s.items))
	copy(out, s.items)
	return out, int64(len(s.items)), nil
}

func (s *memBookStore) ListAll(_ context.Context) ([]books.Book, error) {
	out := make([]books.Book, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *memBookStore) UpdateByISBN(_ context.Context, isbn string, in books.UpdateBookRequest) (*books.Book, error) {
	for i := range s.items {
		if s.items[i].ISBN != isbn {
			continue
		}
		b := &s.items[i]
		if in.Title != nil {
			b.Title = *in.Title
		}
		if in.Author != nil {
			b.Author = *in.Author
		}
		if in.TotalCopies != nil {
			onLoan := b.TotalCopies - b.AvailableCopies
			if *in.TotalCopies < onLoan {
				return nil, books.ErrConflict("total_copies below copies currently on loan")
			}
			b.TotalCopies = *in.TotalCopies
			b.AvailableCopies = *in.TotalCopies - onLoan
		}
		cp := *b
		return &cp, nil
	}
	return nil, books.ErrNotFound("book not found")
}

var _ books.BookStore = (*memBookStore)(nil)

func newBookService() (*books.Service, *memBookStore) {
	store := &memBookStore{}
	return books.NewServiceWithStore(store), store
}

func assertCode(t *testing.T, err error, want books.Code) {
	t.Helper()
	var api *books.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, want, api.Code)
}

func addBook(t *testing.T, svc *books.Service, title, author, isbn string, copies int) books.BookResponse {
	t.Helper()
	res, err := svc.AddBook(context.Background(), books.CreateBookRequest{
		Title: title, Author: author, ISBN: isbn, TotalCopies: copies,
	})
	require.NoError(t, err)
	return res
}

// ---- tests ----

func Test_AddBook(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes_available_from_total", func(t *testing.T) {
		svc, _ := newBookService()
		res := addBook(t, svc, "  The Go Programming Language  ", "Donovan", "9780134190440", 3)
		assert.Equal(t, "The Go Programming Language", res.Title)
		assert.Equal(t, 3, res.TotalCopies)
		assert.Equal(t, 3, res.AvailableCopies)
		assert.NotZero(t, res.BookID)
	})

	t.Run("rejects_duplicate_isbn", func(t *testing.T) {
		svc, _ := newBookService()
		addBook(t, svc, "a", "b", "9780134190440", 1)
		_, err := svc.AddBook(ctx, books.CreateBookRequest{
			Title: "other", Author: "other", ISBN: "9780134190440", TotalCopies: 1,
		})
		assertCode(t, err, books.CodeDuplicateISBN)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newBookService()
		tests := []struct {
			name string
			req  books.CreateBookRequest
		}{
			{"empty_title", books.CreateBookRequest{Title: "  ", Author: "a", ISBN: "9780134190440", TotalCopies: 1}},
			{"title_over_200_runes", books.CreateBookRequest{Title: strings.Repeat("あ", 201), Author: "a", ISBN: "9780134190440", TotalCopies: 1}},
			{"empty_author", books.CreateBookRequest{Title: "t", Author: "", ISBN: "9780134190440", TotalCopies: 1}},
			{"author_over_100_runes", books.CreateBookRequest{Title: "t", Author: strings.Repeat("x", 101), ISBN: "9780134190440", TotalCopies: 1}},
			{"isbn_too_short", books.CreateBookRequest{Title: "t", Author: "a", ISBN: "978013419044", TotalCopies: 1}},
			{"isbn_with_letters", books.CreateBookRequest{Title: "t", Author: "a", ISBN: "97801341904AB", TotalCopies: 1}},
			{"isbn_with_hyphens", books.CreateBookRequest{Title: "t", Author: "a", ISBN: "978-013419044", TotalCopies: 1}},
			{"zero_copies", books.CreateBookRequest{Title: "t", Author: "a", ISBN: "9780134190440", TotalCopies: 0}},
			{"negative_copies", books.CreateBookRequest{Title: "t", Author: "a", ISBN: "9780134190440", TotalCopies: -2}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.AddBook(ctx, tt.req)
				assertCode(t, err, books.CodeInvalidArgument)
			})
		}
	})

	t.Run("title_of_exactly_200_runes_is_ok", func(t *testing.T) {
		svc, _ := newBookService()
		addBook(t, svc, strings.Repeat("あ", 200), "a", "9780134190440", 1)
	})
}

func Test_GetBook(t *testing.T) {
	svc, _ := newBookService()
	addBook(t, svc, "t", "a", "9780134190440", 1)

	res, err := svc.GetBook(context.Background(), "9780134190440")
	require.NoError(t, err)
	assert.Equal(t, "t", res.Title)

	_, err = svc.GetBook(context.Background(), "9999999999999")
	assertCode(t, err, books.CodeNotFound)
}

func Test_UpdateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("updates_fields", func(t *testing.T) {
		svc, _ := newBookService()
		addBook(t, svc, "old", "a", "9780134190440", 2)

		title := "new title"
		copies := 5
		res, err := svc.UpdateBook(ctx, "9780134190440", books.UpdateBookRequest{Title: &title, TotalCopies: &copies})
		require.NoError(t, err)
		assert.Equal(t, "new title", res.Title)
		assert.Equal(t, 5, res.TotalCopies)
		assert.Equal(t, 5, res.AvailableCopies)
	})

	t.Run("rejects_shrinking_below_on_loan", func(t *testing.T) {
		svc, store := newBookService()
		addBook(t, svc, "t", "a", "9780134190440", 3)
		store.items[0].AvailableCopies = 1 // 2冊貸出中

		copies := 1
		_, err := svc.UpdateBook(ctx, "9780134190440", books.UpdateBookRequest{TotalCopies: &copies})
		assertCode(t, err, books.CodeConflict)
	})

	t.Run("rejects_invalid_values", func(t *testing.T) {
		svc, _ := newBookService()
		addBook(t, svc, "t", "a", "9780134190440", 1)

		empty := " "
		_, err := svc.UpdateBook(ctx, "9780134190440", books.UpdateBookRequest{Title: &empty})
		assertCode(t, err, books.CodeInvalidArgument)

		zero := 0
		_, err = svc.UpdateBook(ctx, "9780134190440", books.UpdateBookRequest{TotalCopies: &zero})
		assertCode(t, err, books.CodeInvalidArgument)
	})
}

func Test_SearchBooks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newBookService()
	addBook(t, svc, "The Pragmatic Programmer", "Andrew Hunt", "9780135957059", 1)
	addBook(t, svc, "Programming Pearls", "Jon Bentley", "9780201657883", 1)
	addBook(t, svc, "Clean Code", "Robert Martin", "9780132350884", 1)

	t.Run("title_substring_is_case_insensitive", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "pRoGrAm", books.SearchTitle)
		require.NoError(t, err)
		require.Len(t, res, 2)
		// 照合順: Pearls が Pragmatic より前
		assert.Equal(t, "Programming Pearls", res[0].Title)
		assert.Equal(t, "The Pragmatic Programmer", res[1].Title)
	})

	t.Run("author_substring", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "martin", books.SearchAuthor)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Clean Code", res[0].Title)
	})

	t.Run("isbn_exact_ignores_hyphens_and_spaces", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "978-0-13-235088-4", books.SearchISBN)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Clean Code", res[0].Title)

		// 部分一致は不可
		res, err = svc.SearchBooks(ctx, "9780132", books.SearchISBN)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("unknown_type_falls_back_to_all", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "bentley", "whatever")
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Programming Pearls", res[0].Title)
	})

	t.Run("blank_term_returns_empty", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "   ", books.SearchAll)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("no_match", func(t *testing.T) {
		res, err := svc.SearchBooks(ctx, "zzzzzz", books.SearchAll)
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}
