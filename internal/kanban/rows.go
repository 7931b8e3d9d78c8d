package kanban

import "time"

// UserRow is a row of userQuery: username, image.
type UserRow struct {
	Username string  `db:"username" json:"username"`
	Image    *string `db:"image" json:"image"`
}

// BoardRow is a row of the board queries: id, name, description, image.
type BoardRow struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Image       *string `db:"image" json:"image"`
}

// ColumnRow is a row of columnsQuery: id, title, color, description,
// position.
type ColumnRow struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Color       string `db:"color" json:"color"`
	Description string `db:"description" json:"description"`
	Position    int    `db:"position" json:"position"`
}

// CardRow is a row of the card queries: id, column_id, title,
// description, color, creation_date, expiration_date, story_points,
// position.
type CardRow struct {
	ID             int64      `db:"id" json:"id"`
	ColumnID       int64      `db:"column_id" json:"column_id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Color          string     `db:"color" json:"color"`
	CreationDate   time.Time  `db:"creation_date" json:"creation_date"`
	ExpirationDate *time.Time `db:"expiration_date" json:"expiration_date"`
	StoryPoints    int        `db:"story_points" json:"story_points"`
	Position       int        `db:"position" json:"position"`
}

// positionRow is the row of nextPositionQuery.
type positionRow struct {
	Next int `db:"next"`
}

// Dashboard is the data of the dashboard binding.
type Dashboard struct {
	User  UserRow    `json:"user"`
	Owned []BoardRow `json:"boards_owned"`
	Guest []BoardRow `json:"boards_guest"`
}

// BoardDetails is the data of the board_details binding.
type BoardDetails struct {
	Board   BoardRow    `json:"board"`
	Columns []ColumnRow `json:"columns"`
}

// ColumnCards is one column of the board_cards binding.
type ColumnCards struct {
	Column ColumnRow `json:"column"`
	Cards  []CardRow `json:"cards"`
}
