package kanban

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
)

// DefaultColor is the color of a card submitted without one.
const DefaultColor = "#ffffff"

// Service serves the kanban bindings. Reads go through the queries
// attached to each binding; writes run on db from the handler.
type Service struct {
	db     router.Executor
	logger logrus.FieldLogger
}

// NewService returns a Service writing through db.
func NewService(db router.Executor, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{db: db, logger: logger}
}

// Bind registers every kanban binding on r.
func (s *Service) Bind(r *router.Router) error {
	bindings := []struct {
		name, path string
		h          router.Handler
		opts       []router.BindOption
	}{
		{"index", "/", s.index, []router.BindOption{
			router.WithQueries(router.Typed[UserRow]("user", "User not found.", userQuery)),
		}},
		{"dashboard", "dashboard/", s.dashboard, []router.BindOption{
			router.RequireSession(),
			router.WithQueries(
				router.Typed[UserRow]("user", "User not found.", userQuery),
				router.Typed[BoardRow]("boards_owned", "You do not own any board.", boardsOwnedQuery),
				router.Typed[BoardRow]("boards_guest", "You are not a guest of any board.", boardsGuestQuery),
			),
		}},
		{"create_board", "board/new/", s.createBoard, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireSession(),
			router.RequireParams("name"),
		}},
		{"board_details", "board/<int:board_id>/", s.boardDetails, []router.BindOption{
			router.RequireSession(),
			router.WithQueries(
				router.Typed[BoardRow]("board", "Board not found.", boardQuery),
				router.Typed[ColumnRow]("columns", "Columns could not be loaded.", columnsQuery),
			),
		}},
		{"board_cards", "board/<int:board_id>/cards/", s.boardCards, []router.BindOption{
			router.RequireSession(),
			router.WithQueries(
				router.Typed[BoardRow]("board", "Board not found.", boardQuery),
				router.Typed[ColumnRow]("columns", "Columns could not be loaded.", columnsQuery),
				router.Typed[CardRow]("cards", "Cards could not be loaded.", cardsQuery),
			),
		}},
		{"create_card", "board/<int:board_id>/cards/new/", s.createCard, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireSession(),
			router.RequireParams("column_id", "title"),
			router.WithQueries(
				router.Typed[BoardRow]("board", "Board not found.", boardQuery),
				router.Typed[ColumnRow]("column", "Column not found.", columnQuery),
				router.Typed[positionRow]("position", "Card position could not be computed.", nextPositionQuery),
			),
		}},
		{"expired_cards", "cards/expired/", s.expiredCards, []router.BindOption{
			router.RequireSession(),
			router.WithQueries(router.Typed[CardRow]("cards", "Cards could not be loaded.", expiredCardsQuery)),
		}},
	}
	for _, b := range bindings {
		if err := r.Bind(b.name, b.path, b.h, b.opts...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) index(_ *http.Request, res *router.Results) router.Response {
	data := map[string]any{"app": "kanboard", "user": nil}
	if users := router.Result[UserRow](res, "user"); len(users) > 0 {
		data["user"] = users[0]
	}
	return router.OK(data)
}

func (s *Service) dashboard(_ *http.Request, res *router.Results) router.Response {
	users := router.Result[UserRow](res, "user")
	if len(users) == 0 {
		return router.JSON(http.StatusUnauthorized, router.Error, "User not found.", nil)
	}
	return router.OK(Dashboard{
		User:  users[0],
		Owned: router.Result[BoardRow](res, "boards_owned"),
		Guest: router.Result[BoardRow](res, "boards_guest"),
	})
}

func (s *Service) boardDetails(_ *http.Request, res *router.Results) router.Response {
	boards := router.Result[BoardRow](res, "board")
	if len(boards) == 0 {
		return boardNotFound()
	}
	return router.OK(BoardDetails{
		Board:   boards[0],
		Columns: router.Result[ColumnRow](res, "columns"),
	})
}

func (s *Service) boardCards(_ *http.Request, res *router.Results) router.Response {
	if len(router.Result[BoardRow](res, "board")) == 0 {
		return boardNotFound()
	}
	cards := router.Result[CardRow](res, "cards")
	byColumn := orm.GroupBy(cards, func(c CardRow) int64 { return c.ColumnID })

	columns := router.Result[ColumnRow](res, "columns")
	out := make([]ColumnCards, 0, len(columns))
	for _, col := range columns {
		cs := byColumn[col.ID]
		if cs == nil {
			cs = []CardRow{}
		}
		out = append(out, ColumnCards{Column: col, Cards: cs})
	}
	if len(cards) == 0 {
		return router.JSON(http.StatusOK, router.Warning, "This board has no cards.", out)
	}
	return router.OK(out)
}

func (s *Service) createBoard(req *http.Request, res *router.Results) router.Response {
	user, _ := res.User()
	params := orm.Params{
		"uuid":          user,
		"name":          formString(res, "name"),
		"description":   formString(res, "description"),
		"creation_date": orm.Now(req.Context()).UTC(),
	}
	if resp, ok := s.insert(req, "board", insertBoard, params); !ok {
		return resp
	}
	return router.JSON(http.StatusCreated, router.Success, "Board created.", map[string]any{
		"name":        params["name"],
		"description": params["description"],
	})
}

func (s *Service) createCard(req *http.Request, res *router.Results) router.Response {
	boards := router.Result[BoardRow](res, "board")
	if len(boards) == 0 {
		return boardNotFound()
	}
	columns := router.Result[ColumnRow](res, "column")
	if len(columns) == 0 {
		return router.JSON(http.StatusBadRequest, router.Error, "Column not found.", nil)
	}

	card := CardRow{
		ColumnID:     columns[0].ID,
		Title:        formString(res, "title"),
		Description:  formString(res, "description"),
		Color:        formString(res, "color"),
		CreationDate: orm.Now(req.Context()).UTC(),
	}
	if card.Color == "" {
		card.Color = DefaultColor
	}
	if v := formString(res, "story_points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalidField("story_points")
		}
		card.StoryPoints = n
	}
	if v := formString(res, "expiration_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return invalidField("expiration_date")
		}
		card.ExpirationDate = &t
	}
	if pos := router.Result[positionRow](res, "position"); len(pos) > 0 {
		card.Position = pos[0].Next
	}

	var expiry any
	if card.ExpirationDate != nil {
		expiry = *card.ExpirationDate
	}
	params := orm.Params{
		"board_id":        boards[0].ID,
		"column_id":       card.ColumnID,
		"title":           card.Title,
		"description":     card.Description,
		"color":           card.Color,
		"creation_date":   card.CreationDate,
		"expiration_date": expiry,
		"story_points":    card.StoryPoints,
		"position":        card.Position,
	}
	if resp, ok := s.insert(req, "card", insertCard, params); !ok {
		return resp
	}
	return router.JSON(http.StatusCreated, router.Success, "Card created.", card)
}

func (s *Service) expiredCards(_ *http.Request, res *router.Results) router.Response {
	cards := router.Result[CardRow](res, "cards")
	if len(cards) == 0 {
		return router.JSON(http.StatusOK, router.Warning, "No expired cards.", cards)
	}
	return router.OK(cards)
}

// insert runs b with params. It reports false with the response to return
// when the write fails.
func (s *Service) insert(req *http.Request, model string, b *orm.Builder, params orm.Params) (router.Response, bool) {
	stmt, err := b.Build(params)
	if err == nil {
		_, err = s.db.Execute(req.Context(), stmt.SQL, stmt.Args...)
	}
	if err == nil {
		return router.Response{}, true
	}

	log := s.logger.WithError(err).WithField("model", model)
	if orm.IsConstraintViolation(err) {
		log.Info("insert rejected")
		return router.JSON(http.StatusConflict, router.Error, fmt.Sprintf("The %s conflicts with existing data.", model), nil), false
	}
	log.Error("insert failed")
	return router.Fail(fmt.Sprintf("The %s could not be created.", model)), false
}

func formString(res *router.Results, key string) string {
	v, ok := res.Param(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(v string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func boardNotFound() router.Response {
	return router.JSON(http.StatusNotFound, router.Error, "Board not found.", nil)
}

func invalidField(name string) router.Response {
	return router.JSON(http.StatusBadRequest, router.Error, "Invalid field: "+name+".", nil)
}
