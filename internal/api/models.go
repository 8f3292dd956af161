package api

// Ref points at another entity by id.
type Ref struct {
	ID int64 `json:"id"`
}

// Dish is the payload of POST and PUT /dishes.
type Dish struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ReleaseDate string `json:"releaseDate"`
	Weight      int    `json:"weight"`
	Pricing     *Ref   `json:"pricing,omitempty"`
	Categories  []Ref  `json:"categories,omitempty"`
	Authors     []Ref  `json:"authors,omitempty"`
}

// User is the payload of POST and PUT /users.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Name     string `json:"name"`
	Birthday string `json:"birthday,omitempty"`
}

// ProfileUpdate is the partial PUT /users body sent by virtual users.
type ProfileUpdate struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Review is the payload of POST and PUT /reviews.
type Review struct {
	ReviewID   int64  `json:"reviewId,omitempty"`
	Content    string `json:"content"`
	IsPositive bool   `json:"isPositive"`
	UserID     int64  `json:"userId"`
	DishID     int64  `json:"dishId"`
}

// Author is the payload of POST and PUT /authors.
type Author struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}
