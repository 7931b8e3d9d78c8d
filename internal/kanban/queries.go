package kanban

import (
	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/scope"
)

var (
	boardID    = orm.Field("board", "id")
	boardOwner = orm.Field("board", "owner")
	userUUID   = orm.Field("user", "uuid")
	guestBoard = orm.Field("guest", "board_id")
	guestUser  = orm.Field("guest", "user_id")
	cardBoard  = orm.Field("card", "board_id")
	cardExpiry = orm.Field("card", "expiration_date")

	boardColumns = []any{boardID, orm.Field("board", "name"), orm.Field("board", "description"), orm.Field("board", "image")}
	cardColumns  = []any{"id", "column_id", "title", "description", "color", "creation_date", "expiration_date", "story_points", "position"}
)

var (
	onBoard = scope.Where("board_id = PARAM(board_id)")

	// expired matches cards whose expiration date has passed.
	expired = scope.Combine(
		scope.Where(cardExpiry.Ne(nil)),
		scope.Where(cardExpiry.Lt(orm.Ident("CURRENT_TIMESTAMP"))),
	)
)

// boardAccess holds when the session user owns the board or is a guest.
const boardAccess = "(_board_.owner = PARAM(uuid) OR _board_.id IN (SELECT board_id FROM _guest_ WHERE user_id = PARAM(uuid)))"

var (
	userQuery = orm.NewBuilder().
			Select("username", "image").
			From("user").
			Where("uuid = PARAM(uuid)")

	boardsOwnedQuery = orm.NewBuilder().
				Select(boardColumns...).
				From(orm.Join("board", "user", userUUID.Eq(boardOwner))).
				Where(boardOwner.Eq("PARAM(uuid)")).
				OrderBy(boardID)

	boardsGuestQuery = orm.NewBuilder().
				Select(boardColumns...).
				From(orm.Join("board", "guest", boardID.Eq(guestBoard))).
				Where(guestUser.Eq("PARAM(uuid)")).
				OrderBy(boardID)

	boardQuery = orm.NewBuilder().
			Select(boardColumns...).
			From("board").
			Where(boardID.Eq("PARAM(board_id)")).
			And(boardAccess)

	columnsQuery = orm.NewBuilder().
			Select("id", "title", "color", "description", "position").
			From("column").
			Scopes(onBoard, scope.OrderBy("position", "id"))

	columnQuery = orm.NewBuilder().
			Select("id", "title", "color", "description", "position").
			From("column").
			Where("id = PARAM(column_id)").
			And("board_id = PARAM(board_id)")

	cardsQuery = orm.NewBuilder().
			Select(cardColumns...).
			From("card").
			Scopes(onBoard, scope.OrderBy("column_id", "position", "id"))

	nextPositionQuery = orm.NewBuilder().
				Select("COALESCE(MAX(position), -1) + 1 AS next").
				From("card").
				Where("column_id = PARAM(column_id)")

	expiredCardsQuery = orm.NewBuilder().
				Select(qualified("card", cardColumns)...).
				From(orm.Join("card", "board", cardBoard.Eq(boardID))).
				Where(boardOwner.Eq("PARAM(uuid)")).
				Scopes(expired...).
				OrderBy(cardExpiry)

	insertCard = orm.NewBuilder().Raw(
		"INSERT INTO _card_ (board_id, column_id, title, description, color, creation_date, expiration_date, story_points, position)\n" +
			"VALUES (PARAM(board_id), PARAM(column_id), PARAM(title), PARAM(description), PARAM(color), PARAM(creation_date), PARAM(expiration_date), PARAM(story_points), PARAM(position))")

	insertBoard = orm.NewBuilder().Raw(
		"INSERT INTO _board_ (owner, name, description, creation_date)\n" +
			"VALUES (PARAM(uuid), PARAM(name), PARAM(description), PARAM(creation_date))")
)

func qualified(table string, cols []any) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = orm.Field(table, c.(string))
	}
	return out
}
