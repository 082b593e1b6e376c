package domain

import "time"

// MenuItem is an orderable catalog entry.
type MenuItem struct {
	ID          int64     `json:"id" bson:"_id"`
	CategoryID  int64     `json:"category_id" bson:"category_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       Money     `json:"price" bson:"price"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Available   bool      `json:"available" bson:"available"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Category groups menu items for display.
type Category struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	SortOrder int       `json:"sort_order" bson:"sort_order"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DeletedRef is the payload of a deletion event: only the id survives.
type DeletedRef struct {
	ID int64 `json:"id"`
}
