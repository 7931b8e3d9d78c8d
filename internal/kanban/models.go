// Package kanban registers the board, column, and card models and binds
// the JSON endpoints that serve them.
package kanban

import (
	"time"

	"github.com/mickamy/kanboard/orm"
)

// App names, the prefix of every physical table.
const (
	AuthApp = "authentication"
	CoreApp = "core"
)

type User struct {
	UUID       string     `db:"uuid"`
	Username   string     `db:"username"`
	Email      string     `db:"email"`
	Password   string     `db:"password"`
	Image      *string    `db:"image"`
	Name       string     `db:"name"`
	Surname    string     `db:"surname"`
	LastLogin  *time.Time `db:"last_login"`
	DateJoined time.Time  `db:"date_joined"`
}

type Board struct {
	ID           int64     `db:"id"`
	Owner        string    `db:"owner"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Image        *string   `db:"image"`
	CreationDate time.Time `db:"creation_date"`
}

// Guest grants a user access to a board it does not own.
type Guest struct {
	ID      int64  `db:"id"`
	UserID  string `db:"user_id"`
	BoardID int64  `db:"board_id"`
}

type Column struct {
	ID          int64  `db:"id"`
	BoardID     int64  `db:"board_id"`
	Title       string `db:"title"`
	Color       string `db:"color"`
	Description string `db:"description"`
	Position    int    `db:"position"`
}

type Card struct {
	ID             int64      `db:"id"`
	BoardID        int64      `db:"board_id"`
	ColumnID       int64      `db:"column_id"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Color          string     `db:"color"`
	CreationDate   time.Time  `db:"creation_date"`
	ExpirationDate *time.Time `db:"expiration_date"`
	StoryPoints    int        `db:"story_points"`
	Position       int        `db:"position"`
}

// Register records every model under database:
//
//	user   -> authentication_user
//	board  -> core_board
//	guest  -> core_guest
//	column -> core_column
//	card   -> core_card
func Register(reg *orm.Registry, database string) {
	orm.Register[User](reg, database, AuthApp)
	orm.Register[Board](reg, database, CoreApp)
	orm.Register[Guest](reg, database, CoreApp)
	orm.Register[Column](reg, database, CoreApp)
	orm.Register[Card](reg, database, CoreApp)
}
