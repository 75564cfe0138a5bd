// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"database/sql"
	"flag"
	"fmt"
	"testing"
	"time"

	"github.com/david-engelmann/turbodbc"
)

var (
	mysrv  = flag.String("mysrv", "", "mysql server name; live mysql tests are skipped when empty")
	mydb   = flag.String("mydb", "dbname", "mysql database name")
	myuser = flag.String("myuser", "", "mysql user name")
	mypass = flag.String("mypass", "", "mysql password")
)

func mysqlConnect(t *testing.T) (*sql.DB, *turbodbc.Environment) {
	if *mysrv == "" {
		t.Skip("set -mysrv to run live mysql tests")
	}
	env, err := turbodbc.DefaultEnvironment()
	if err != nil {
		t.Fatal(err)
	}
	// from https://dev.mysql.com/doc/connector-odbc/en/connector-odbc-configuration-connection-parameters.html
	conn := fmt.Sprintf("driver=mysql;server=%s;database=%s;", *mysrv, *mydb)
	return sql.OpenDB(NewConnector(env, conn, turbodbc.WithCredentials(*myuser, *mypass))), env
}

func TestMYSQLTime(t *testing.T) {
	db, env := mysqlConnect(t)
	defer closeDB(t, db, env)

	db.Exec("drop table temp")
	exec(t, db, "create table temp(id int not null auto_increment primary key, time time)")
	now := time.Now()
	// SQL_TIME_STRUCT only supports hours, minutes and seconds
	now = time.Date(1, time.January, 1, now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	exec(t, db, "insert into temp (time) values(?)", now)

	var ret time.Time
	if err := db.QueryRow("select time from temp where id = ?", 1).Scan(&ret); err != nil {
		t.Fatal(err)
	}
	if !ret.Equal(now) {
		t.Fatalf("unexpected return value: want=%v, is=%v", now, ret)
	}

	exec(t, db, "drop table temp")
}

func TestMYSQLBatchSize(t *testing.T) {
	db, env := mysqlConnect(t)
	defer closeDB(t, db, env)

	var n int
	rows, err := db.Query("select 1 union all select 2 union all select 3")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
}
