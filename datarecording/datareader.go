package datarecording

import (
	"database/sql"
	"fmt"
	"reflect"
)

// A DataReader reads entries back out of a recording database.
type DataReader struct {
	db *sql.DB
}

// NewReader opens a recording database for reading.
func NewReader(path string) *DataReader {
	db, err := sql.Open("sqlite3", path+".sqlite3")
	if err != nil {
		panic(err)
	}

	return &DataReader{db: db}
}

// NewReaderWithDB wraps an already-open database.
func NewReaderWithDB(db *sql.DB) *DataReader {
	return &DataReader{db: db}
}

// Query scans all rows of the table into values shaped like the sample
// struct.
func (r *DataReader) Query(tableName string, sampleEntry any) []any {
	rows, err := r.db.Query("SELECT * FROM " + tableName)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	entryType := reflect.TypeOf(sampleEntry)
	var out []any

	for rows.Next() {
		entry := reflect.New(entryType).Elem()

		fields := make([]any, entryType.NumField())
		for i := range fields {
			fields[i] = entry.Field(i).Addr().Interface()
		}

		if err := rows.Scan(fields...); err != nil {
			panic(fmt.Errorf("scanning %s: %w", tableName, err))
		}

		out = append(out, entry.Interface())
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}

	return out
}
