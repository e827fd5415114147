package books_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/books"
)

func newRouter() (*gin.Engine, *books.Service) {
	gin.SetMode(gin.TestMode)
	svc := books.NewServiceWithStore(&memBookStore{})
	r := gin.New()
	books.RegisterRoutes(r, svc)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func Test_BooksAPI(t *testing.T) {
	r, _ := newRouter()

	t.Run("create_then_get", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/books",
			`{"title":"Clean Code","author":"Robert Martin","isbn":"9780132350884","total_copies":2}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/books/9780132350884", w.Header().Get("Location"))

		var created books.BookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, 2, created.AvailableCopies)

		w = doJSON(t, r, http.MethodGet, "/books/9780132350884", "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("duplicate_isbn_conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/books",
			`{"title":"dup","author":"dup","isbn":"9780132350884","total_copies":1}`)
		require.Equal(t, http.StatusConflict, w.Code)

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "DUPLICATE_ISBN", body.Error.Code)
	})

	t.Run("invalid_payload", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/books", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doJSON(t, r, http.MethodPost, "/books",
			`{"title":"t","author":"a","isbn":"123","total_copies":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("search", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/books/search?q=clean&type=title", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res []books.BookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 1)
		assert.Equal(t, "Clean Code", res[0].Title)
	})

	t.Run("unknown_isbn_is_404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/books/9999999999999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list_with_paging", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/books?limit=10&offset=0", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Items []books.BookResponse `json:"items"`
			Total int64                `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(1), body.Total)
	})
}
