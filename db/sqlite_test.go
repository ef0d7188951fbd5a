package db

import (
	"database/sql"
)

func createTrace(fn string) error {
	h, err := sql.Open("sqlite", fn)
	if err != nil {
		return err
	}
	defer h.Close()
	for _, stmt := range []string{
		`CREATE TABLE StringIds (id INTEGER PRIMARY KEY, value TEXT NOT NULL)`,
		`CREATE TABLE ANALYSIS_DETAILS (duration INTEGER)`,
		`INSERT INTO ANALYSIS_DETAILS VALUES (123456)`,
	} {
		if _, err := h.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
