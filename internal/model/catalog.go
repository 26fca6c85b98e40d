package model

type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is an entry owned by a single user. CategoryName is filled from the
// joined category row and is what the JSON "category" field carries.
type Item struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CategoryID   int64  `json:"-"`
	UserID       int64  `json:"-"`
	CategoryName string `json:"category"`
}
