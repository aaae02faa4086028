// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to retrieve the configuration of the GRAND
// antenna field from the condition database.
package conddb // import "github.com/grand-mother/c-grand-to-hdf5/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/station"
)

var (
	host = "localhost:3306"
	usr  = "grand"
	pwd  = ""

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve the field configuration
// from the GRAND condition database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the condition database dbname.
//
// The GRAND_DB_HOST, GRAND_DB_USER and GRAND_DB_PASSWORD environment
// variables, when set, override the default credentials.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(dbname string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = getenv("GRAND_DB_HOST", host)
	cfg.User = getenv("GRAND_DB_USER", usr)
	cfg.Passwd = getenv("GRAND_DB_PASSWORD", pwd)
	cfg.DBName = dbname
	return cfg.FormatDSN()
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Stations returns the antennas of the field as configured for the
// provided run, ordered by antenna id.
//
// Channels are stored as a 4-character string, one axis per channel
// (e.g. "XYZ-").
func (db *DB) Stations(ctx context.Context, run uint32) ([]station.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT stations.id, stations.elec_id,
       stations.longitude, stations.latitude, stations.altitude,
       stations.ant_model, stations.elec_model, stations.channels
FROM stations
JOIN run_stations ON stations.id=run_stations.station
WHERE run_stations.run=?
ORDER BY stations.id
`,
		run,
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not run stations query: %w", err)
	}
	defer rows.Close()

	var (
		entries []station.Entry
		i       = 0
	)
	for rows.Next() {
		var (
			e   station.Entry
			chs string
		)
		err = rows.Scan(
			&e.ID, &e.ElecID,
			&e.Longitude, &e.Latitude, &e.Altitude,
			&e.AntModel, &e.ElecModel, &chs,
		)
		if err != nil {
			return entries, fmt.Errorf("conddb: could not scan row %d for stations: %w", i, err)
		}
		i++

		for j := 0; j < len(chs) && j < len(e.Channels); j++ {
			e.Channels[j] = grandbin.ParseAxis(chs[j : j+1])
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return entries, fmt.Errorf("conddb: could not scan db for stations: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return entries, fmt.Errorf("conddb: context error while retrieving stations: %w", err)
	}

	return entries, nil
}

// Directory returns the station directory for the provided run.
func (db *DB) Directory(ctx context.Context, run uint32) (*station.Directory, error) {
	entries, err := db.Stations(ctx, run)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("conddb: no station configured for run %d in %q", run, db.name)
	}
	return station.New(entries)
}
