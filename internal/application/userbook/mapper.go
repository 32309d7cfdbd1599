package userbook

import (
	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/user"
)

// 传输对象与领域实体之间逐字段转换

func toUser(req UserRequest) *user.User {
	return &user.User{
		FullName: req.FullName,
		Title:    req.Title,
		Age:      req.Age,
	}
}

func toBook(req *BookRequest, userID uint) *book.Book {
	return &book.Book{
		ID:        req.ID,
		UserID:    userID,
		Title:     req.Title,
		Author:    req.Author,
		PageCount: req.PageCount,
	}
}

func toBookView(b *book.Book) BookView {
	return BookView{
		ID:        b.ID,
		UserID:    b.UserID,
		Title:     b.Title,
		Author:    b.Author,
		PageCount: b.PageCount,
	}
}

func toUserWithBooks(u *user.User, books []*book.Book) *UserWithBooks {
	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, toBookView(b))
	}
	return &UserWithBooks{
		UserID:   u.ID,
		FullName: u.FullName,
		Title:    u.Title,
		Age:      u.Age,
		Books:    views,
	}
}

func bookIDs(books []*book.Book) []uint {
	ids := make([]uint, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}
