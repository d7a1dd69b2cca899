/*
 * Copyright 2024 The OpenLEGO Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package recorder persists discipline execution records to a SQL database,
// one row per Execute or Linearize call, for post-run inspection of an MDO
// run: what was exchanged, how long the tool took, what failed.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/openlego/openlego/api/types"
	"github.com/openlego/openlego/utils/str"
)

// Config recorder configuration
type Config struct {
	// DriverName database driver name, mysql or postgres
	DriverName string `yaml:"driverName"`
	// Dsn database connection configuration, see sql.Open
	Dsn string `yaml:"dsn"`
	// Table table name, defaults to discipline_executions
	Table string `yaml:"table"`
	// PoolSize connection pool size
	PoolSize int `yaml:"poolSize"`
}

// DbRecorder writes execution records through database/sql. It implements
// types.Recorder.
type DbRecorder struct {
	config    Config
	db        *sql.DB
	insertSql string
}

var _ types.Recorder = (*DbRecorder)(nil)

// New opens the database and prepares the recorder. The target table must
// exist; see Schema for a reference definition.
func New(config Config) (*DbRecorder, error) {
	if config.DriverName == "" {
		config.DriverName = "mysql"
	}
	if config.DriverName != "mysql" && config.DriverName != "postgres" {
		return nil, fmt.Errorf("unsupported driver name %q", config.DriverName)
	}
	if config.Dsn == "" {
		return nil, errors.New("dsn can not empty")
	}
	if config.Table == "" {
		config.Table = "discipline_executions"
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, err
	}
	if config.PoolSize > 0 {
		db.SetMaxOpenConns(config.PoolSize)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DbRecorder{
		config:    config,
		db:        db,
		insertSql: insertStatement(config.Table, config.DriverName),
	}, nil
}

// Record inserts one execution record.
func (r *DbRecorder) Record(record types.ExecutionRecord) error {
	_, err := r.db.Exec(r.insertSql,
		record.DisciplineType,
		record.Kind,
		record.StartedAt,
		record.Duration.Milliseconds(),
		string(record.InputXML),
		string(record.OutputXML),
		record.Error,
	)
	return err
}

// Close closes the database.
func (r *DbRecorder) Close() error {
	return r.db.Close()
}

// Schema returns a reference CREATE TABLE statement for the record table.
func Schema(table string) string {
	if table == "" {
		table = "discipline_executions"
	}
	return `CREATE TABLE ` + table + ` (
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  discipline VARCHAR(128) NOT NULL,
  kind VARCHAR(16) NOT NULL,
  started_at TIMESTAMP NOT NULL,
  duration_ms BIGINT NOT NULL,
  input_xml TEXT,
  output_xml TEXT,
  error TEXT
)`
}

func insertStatement(table, driverName string) string {
	statement := "INSERT INTO " + table +
		" (discipline, kind, started_at, duration_ms, input_xml, output_xml, error)" +
		" VALUES (?, ?, ?, ?, ?, ?, ?)"
	return str.ConvertDollarPlaceholder(statement, driverName)
}
