package auth

import (
	"time"

	"github.com/mickamy/kanboard/orm"
)

// Account is a row of detailsQuery. The password hash never leaves the
// package.
type Account struct {
	UUID       string     `db:"uuid" json:"uuid"`
	Username   string     `db:"username" json:"username"`
	Email      string     `db:"email" json:"email"`
	Name       string     `db:"name" json:"name"`
	Surname    string     `db:"surname" json:"surname"`
	Image      *string    `db:"image" json:"image"`
	DateJoined time.Time  `db:"date_joined" json:"date_joined"`
	LastLogin  *time.Time `db:"last_login" json:"last_login"`
}

type credentials struct {
	UUID     string `db:"uuid"`
	Username string `db:"username"`
	Email    string `db:"email"`
	Password string `db:"password"`
}

var (
	detailsQuery = orm.NewBuilder().
			Select("_user_uuid", "_user_username", "_user_email", "_user_name", "_user_surname",
			"_user_image", "_user_date_joined", "_user_last_login").
		From("user").
		Where("_user_uuid = PARAM(uuid)")

	credentialsQuery = orm.NewBuilder().
				Select("uuid", "username", "email", "password").
				From("user").
				Where("email = PARAM(key)").
				Or("username = PARAM(key)")

	insertUser = orm.NewBuilder().Raw(
		"INSERT INTO _user_ (uuid, username, email, password, name, surname, date_joined, last_login)\n" +
			"VALUES (PARAM(uuid), PARAM(username), PARAM(email), PARAM(password), PARAM(name), PARAM(surname), PARAM(now), PARAM(now))")

	touchLogin = orm.NewBuilder().Raw("UPDATE _user_ SET last_login = PARAM(now) WHERE uuid = PARAM(uuid)")

	// updateUser keeps every column whose parameter is NULL.
	updateUser = orm.NewBuilder().Raw(
		"UPDATE _user_ SET name = COALESCE(PARAM(name), name), surname = COALESCE(PARAM(surname), surname),\n" +
			"email = COALESCE(PARAM(email), email), password = COALESCE(PARAM(password), password),\n" +
			"image = COALESCE(PARAM(image), image)\n" +
			"WHERE uuid = PARAM(uuid)")
)
