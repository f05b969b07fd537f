// Package database opens the postgres connection used to store and read route delay observations
package database

import (
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
)

// Config is the required properties to use the database.
type Config struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
}

// ConnectionURL builds the pgx connection url for cfg
func ConnectionURL(cfg Config) string {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the database described by cfg and verifies the connection.
func Open(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", ConnectionURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s on %s: %w", cfg.Name, cfg.Host, err)
	}
	return db, nil
}

// PrepareNamedQueryFromMap expands named parameters in statementString from sqlArgMap, expanding
// slice arguments for "in" clauses, and rebinds the query for db's driver
func PrepareNamedQueryFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (string, []interface{}, error) {

	query, args, err := sqlx.Named(statementString, sqlArgMap)
	if err != nil {
		return query, nil, err
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return query, nil, err
	}
	query = db.Rebind(query)
	return query, args, nil
}

// PrepareNamedQueryRowsFromMap runs the query built by PrepareNamedQueryFromMap with db.Queryx
func PrepareNamedQueryRowsFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (*sqlx.Rows, error) {

	query, args, err := PrepareNamedQueryFromMap(statementString, db, sqlArgMap)
	if err != nil {
		return nil, err
	}
	return db.Queryx(query, args...)
}
