package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Constant struct {
	Constant    string    `json:"constant"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrConstantNotFound is returned when updating a constant that was never seeded.
var ErrConstantNotFound = errors.New("constant not found")

var defaultConstants = []Constant{
	{Constant: "server address", Value: "192.168.1.0", Description: "IP address of ASRS server"},
	{Constant: "robot api", Value: "192.168.1.0:0", Description: "IP address of robot server"},
}

// seedConstants inserts the default rows without overwriting edited values.
func (db *DB) seedConstants() error {
	for _, c := range defaultConstants {
		_, err := db.Exec(db.Q(`INSERT INTO constants (constant, value, description) VALUES (?, ?, ?) ON CONFLICT (constant) DO NOTHING`),
			c.Constant, c.Value, c.Description)
		if err != nil {
			return fmt.Errorf("seed %q: %w", c.Constant, err)
		}
	}
	return nil
}

func (db *DB) ListConstants() ([]*Constant, error) {
	rows, err := db.Query(`SELECT constant, value, description, updated_at FROM constants ORDER BY constant`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Constant
	for rows.Next() {
		var c Constant
		var updatedAt any
		if err := rows.Scan(&c.Constant, &c.Value, &c.Description, &updatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt = parseTime(updatedAt)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (db *DB) GetConstant(name string) (*Constant, error) {
	var c Constant
	var updatedAt any
	err := db.QueryRow(db.Q(`SELECT constant, value, description, updated_at FROM constants WHERE constant=?`), name).
		Scan(&c.Constant, &c.Value, &c.Description, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConstantNotFound
	}
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (db *DB) SetConstant(name, value string) error {
	res, err := db.Exec(db.Q(`UPDATE constants SET value=?, updated_at=datetime('now','localtime') WHERE constant=?`), value, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConstantNotFound
	}
	return nil
}
