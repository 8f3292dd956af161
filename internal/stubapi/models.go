package stubapi

// Request and response bodies of the stub. Field names follow the service
// contract; validate tags drive the 400 responses.

type ref struct {
	ID int64 `json:"id"`
}

type errorBody struct {
	Error string `json:"error"`
}

type dishInput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=2000"`
	ReleaseDate string `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
	Weight      int    `json:"weight" validate:"gt=0"`
	Pricing     *ref   `json:"pricing"`
	Categories  []ref  `json:"categories"`
	Authors     []ref  `json:"authors"`
}

type dishView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ReleaseDate string `json:"releaseDate"`
	Weight      int    `json:"weight"`
	Pricing     *ref   `json:"pricing"`
	Categories  []ref  `json:"categories"`
	Authors     []ref  `json:"authors"`
	Likes       int    `json:"likes"`
}

type userInput struct {
	ID       int64  `json:"id"`
	Email    string `json:"email" validate:"required,email"`
	Login    string `json:"login" validate:"required,notblank,max=64"`
	Name     string `json:"name"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02,past"`
}

type userView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Login    string `json:"login"`
	Name     string `json:"name"`
	Birthday string `json:"birthday,omitempty"`
}

type reviewInput struct {
	ReviewID   int64  `json:"reviewId"`
	Content    string `json:"content" validate:"required,notblank,max=200"`
	IsPositive *bool  `json:"isPositive" validate:"required"`
	UserID     int64  `json:"userId" validate:"gt=0"`
	DishID     int64  `json:"dishId" validate:"gt=0"`
}

type reviewView struct {
	ReviewID   int64  `json:"reviewId"`
	Content    string `json:"content"`
	IsPositive bool   `json:"isPositive"`
	UserID     int64  `json:"userId"`
	DishID     int64  `json:"dishId"`
	Useful     int    `json:"useful"`
}

type authorInput struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,notblank,max=255"`
}

type named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type eventView struct {
	EventID   int64  `json:"eventId"`
	Timestamp int64  `json:"timestamp"`
	UserID    int64  `json:"userId"`
	EventType string `json:"eventType"`
	Operation string `json:"operation"`
	EntityID  int64  `json:"entityId"`
}
