package domain

import (
	"context"
	"time"
)

// SessionFetcher fetches schedule data from Sessionize (or a test double).
type SessionFetcher interface {
	Fetch(ctx context.Context, sessionizeID string) (SessionFetcherResponse, error)
}

// SessionFetcherResponse is the Sessionize All API response shape.
type SessionFetcherResponse struct {
	Sessions   []SessionFetcherSession  `json:"sessions"`
	Rooms      []SessionFetcherRoom     `json:"rooms"`
	Categories []SessionFetcherCategory `json:"categories"`
}

// SessionFetcherRoom is a room in the Sessionize All response (flat list).
type SessionFetcherRoom struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

// SessionFetcherSession is a session in the Sessionize All response.
type SessionFetcherSession struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	StartsAt         time.Time `json:"startsAt"`
	EndsAt           time.Time `json:"endsAt"`
	IsServiceSession bool      `json:"isServiceSession"`
	CategoryItems    []int     `json:"categoryItems"`
	RoomID           int       `json:"roomId"`
}

// SessionFetcherCategoryItem is a single category item in the Sessionize All response.
type SessionFetcherCategoryItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

// SessionFetcherCategory is a category group in the Sessionize All response.
type SessionFetcherCategory struct {
	ID    int                          `json:"id"`
	Title string                       `json:"title"`
	Items []SessionFetcherCategoryItem `json:"items"`
	Sort  int                          `json:"sort"`
	Type  string                       `json:"type"`
}

// ImportSummary reports what a schedule import touched.
type ImportSummary struct {
	Rooms int `json:"rooms"`
	Slots int `json:"slots"`
}

// CatalogService administers rooms and slots. The booking core only reads what it writes.
type CatalogService interface {
	CreateRoom(ctx context.Context, room *Room) error
	UpdateRoom(ctx context.Context, roomID string, name *string, ceiling *int, notBookable *bool) (*Room, error)
	CreateSlot(ctx context.Context, slot *Slot) error
	SetSlotCapacity(ctx context.Context, slotID string, maxCapacity int) (*Slot, error)
	ImportSessionize(ctx context.Context, eventID, sessionizeID string) (ImportSummary, error)
}
