package models

import (
	"time"
)

// Todo represents a todo item
type Todo struct {
	ID        int64     `firestore:"id" json:"id"`
	Title     string    `firestore:"title" json:"title"`
	Completed bool      `firestore:"completed" json:"completed"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
