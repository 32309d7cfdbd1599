package dto

import "github.com/xiebiao/bookshelf/internal/application/userbook"

// UserRequest HTTP用户字段
// 字段合法性由领域层校验，这里不加binding规则，以便返回统一的字段校验错误码
type UserRequest struct {
	FullName string `json:"full_name" example:"Ada Lovelace"`
	Title    string `json:"title" example:"reader"`
	Age      int    `json:"age" example:"30"`
}

// BookRequest HTTP图书字段，更新时可携带id覆盖已有图书
type BookRequest struct {
	ID        uint   `json:"id,omitempty" example:"0"`
	Title     string `json:"title" example:"Notes on the Analytical Engine"`
	Author    string `json:"author" example:"Ada Lovelace"`
	PageCount int    `json:"page_count" example:"120"`
}

// UserBookRequest 创建/更新用户及图书的请求体
type UserBookRequest struct {
	UserRequest  UserRequest    `json:"user_request"`
	BookRequests []*BookRequest `json:"book_requests"`
}

// UserBookResponse 写操作响应
type UserBookResponse struct {
	UserID  uint   `json:"user_id" example:"1"`
	BookIDs []uint `json:"book_ids"`
}

// BookResponse 图书详情
type BookResponse struct {
	ID        uint   `json:"id" example:"1"`
	UserID    uint   `json:"user_id" example:"1"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PageCount int    `json:"page_count" example:"120"`
}

// UserWithBooksResponse 查询响应
type UserWithBooksResponse struct {
	UserID   uint           `json:"user_id" example:"1"`
	FullName string         `json:"full_name"`
	Title    string         `json:"title"`
	Age      int            `json:"age" example:"30"`
	Books    []BookResponse `json:"books"`
}

// ToApp 转换为应用层请求
func (r *UserBookRequest) ToApp() userbook.UserBooksRequest {
	books := make([]*userbook.BookRequest, 0, len(r.BookRequests))
	for _, b := range r.BookRequests {
		if b == nil {
			books = append(books, nil)
			continue
		}
		books = append(books, &userbook.BookRequest{
			ID:        b.ID,
			Title:     b.Title,
			Author:    b.Author,
			PageCount: b.PageCount,
		})
	}
	return userbook.UserBooksRequest{
		User: userbook.UserRequest{
			FullName: r.UserRequest.FullName,
			Title:    r.UserRequest.Title,
			Age:      r.UserRequest.Age,
		},
		Books: books,
	}
}

// NewUserBookResponse 应用层写操作结果 → HTTP响应
func NewUserBookResponse(result *userbook.UserBooksResult) *UserBookResponse {
	ids := result.BookIDs
	if ids == nil {
		ids = []uint{}
	}
	return &UserBookResponse{UserID: result.UserID, BookIDs: ids}
}

// NewUserWithBooksResponse 应用层查询结果 → HTTP响应
func NewUserWithBooksResponse(v *userbook.UserWithBooks) *UserWithBooksResponse {
	books := make([]BookResponse, 0, len(v.Books))
	for _, b := range v.Books {
		books = append(books, BookResponse{
			ID:        b.ID,
			UserID:    b.UserID,
			Title:     b.Title,
			Author:    b.Author,
			PageCount: b.PageCount,
		})
	}
	return &UserWithBooksResponse{
		UserID:   v.UserID,
		FullName: v.FullName,
		Title:    v.Title,
		Age:      v.Age,
		Books:    books,
	}
}
