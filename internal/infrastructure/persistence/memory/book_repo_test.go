package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

func newBook(userID uint, title string) *book.Book {
	return &book.Book{UserID: userID, Title: title, Author: "author", PageCount: 100}
}

func TestBookRepository_FindAllByUserID(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository()

	b1 := newBook(1, "B1")
	b2 := newBook(1, "B2")
	other := newBook(3, "other")
	require.NoError(t, repo.Create(ctx, b1))
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.Create(ctx, b2))

	books, err := repo.FindAllByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, b1.ID, books[0].ID)
	assert.Equal(t, b2.ID, books[1].ID)

	empty, err := repo.FindAllByUserID(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestBookRepository_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository()

	cases := []struct {
		name string
		book *book.Book
	}{
		{"缺少所属用户", &book.Book{Title: "t", Author: "a", PageCount: 1}},
		{"书名为空", &book.Book{UserID: 1, Title: "", Author: "a", PageCount: 1}},
		{"作者为空白", &book.Book{UserID: 1, Title: "t", Author: "   ", PageCount: 1}},
		{"页数为0", &book.Book{UserID: 1, Title: "t", Author: "a", PageCount: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Create(ctx, tc.book), book.ErrInvalidBook)
			assert.ErrorIs(t, repo.Update(ctx, tc.book), book.ErrInvalidBook)
		})
	}
	assert.Equal(t, 0, repo.Count())
}

func TestBookRepository_DeleteAllByUserID(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository()

	require.NoError(t, repo.Create(ctx, newBook(1, "a")))
	require.NoError(t, repo.Create(ctx, newBook(1, "b")))
	keep := newBook(2, "c")
	require.NoError(t, repo.Create(ctx, keep))

	require.NoError(t, repo.DeleteAllByUserID(ctx, 1))
	require.NoError(t, repo.DeleteAllByUserID(ctx, 42))

	books, _ := repo.FindAllByUserID(ctx, 1)
	assert.Empty(t, books)
	assert.Equal(t, 1, repo.Count())

	exists, err := repo.Exists(ctx, keep.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBookRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepository()

	b := newBook(7, "Go")
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}
