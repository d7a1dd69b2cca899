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

package recorder

import (
	"strings"
	"testing"

	"github.com/openlego/openlego/test/assert"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Config{DriverName: "sqlite", Dsn: "file.db"})
	assert.NotNil(t, err)

	_, err = New(Config{DriverName: "mysql"})
	assert.NotNil(t, err)
}

func TestInsertStatement(t *testing.T) {
	mysqlStatement := insertStatement("discipline_executions", "mysql")
	assert.True(t, strings.Contains(mysqlStatement, "INSERT INTO discipline_executions"))
	assert.True(t, strings.Contains(mysqlStatement, "(?, ?, ?, ?, ?, ?, ?)"))

	postgresStatement := insertStatement("discipline_executions", "postgres")
	assert.True(t, strings.Contains(postgresStatement, "$1"))
	assert.True(t, strings.Contains(postgresStatement, "$7"))
	assert.False(t, strings.Contains(postgresStatement, "?"))
}

func TestSchema(t *testing.T) {
	assert.True(t, strings.Contains(Schema(""), "discipline_executions"))
	assert.True(t, strings.Contains(Schema("custom"), "CREATE TABLE custom"))
}
