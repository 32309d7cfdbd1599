package userbook

// UserRequest 用户字段
type UserRequest struct {
	FullName string
	Title    string
	Age      int
}

// BookRequest 图书字段，ID非0时在更新操作中按该ID覆盖
type BookRequest struct {
	ID        uint
	Title     string
	Author    string
	PageCount int
}

// UserBooksRequest 用户及其图书
// Books中的nil元素会被跳过
type UserBooksRequest struct {
	User  UserRequest
	Books []*BookRequest
}

// UserBooksResult 写操作结果
type UserBooksResult struct {
	UserID  uint   `json:"user_id"`
	BookIDs []uint `json:"book_ids"`
}

// BookView 图书完整字段
type BookView struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PageCount int    `json:"page_count"`
}

// UserWithBooks 查询结果：用户字段 + 全部图书
type UserWithBooks struct {
	UserID   uint       `json:"user_id"`
	FullName string     `json:"full_name"`
	Title    string     `json:"title"`
	Age      int        `json:"age"`
	Books    []BookView `json:"books"`
}
