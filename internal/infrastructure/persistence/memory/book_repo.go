package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xiebiao/bookshelf/internal/domain/book"
)

// BookRepository 内存图书仓储
type BookRepository struct {
	mu     sync.RWMutex
	nextID uint
	books  map[uint]book.Book
}

var _ book.Repository = (*BookRepository)(nil)

// NewBookRepository 创建内存图书仓储
func NewBookRepository() *BookRepository {
	return &BookRepository{
		nextID: 1,
		books:  make(map[uint]book.Book),
	}
}

func (r *BookRepository) Create(_ context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b.ID = r.nextID
	r.nextID++
	b.Touch()
	r.books[b.ID] = *b
	return nil
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == 0 {
		return r.Create(ctx, b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID >= r.nextID {
		r.nextID = b.ID + 1
	}
	b.Touch()
	r.books[b.ID] = *b
	return nil
}

func (r *BookRepository) FindByID(_ context.Context, id uint) (*book.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return nil, book.ErrBookNotFound
	}
	return &b, nil
}

func (r *BookRepository) FindAllByUserID(_ context.Context, userID uint) ([]*book.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]*book.Book, 0)
	for _, b := range r.books {
		if b.UserID == userID {
			cp := b
			books = append(books, &cp)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (r *BookRepository) Exists(_ context.Context, id uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.books[id]
	return ok, nil
}

func (r *BookRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.books, id)
	return nil
}

func (r *BookRepository) DeleteAllByUserID(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, b := range r.books {
		if b.UserID == userID {
			delete(r.books, id)
		}
	}
	return nil
}

// Count 当前图书数量
func (r *BookRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}
