// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/david-engelmann/turbodbc"
)

var (
	mssrv    = flag.String("mssrv", "", "ms sql server name; live ms sql tests are skipped when empty")
	msdb     = flag.String("msdb", "dbname", "ms sql server database name")
	msuser   = flag.String("msuser", "", "ms sql server user name")
	mspass   = flag.String("mspass", "", "ms sql server password")
	msdriver = flag.String("msdriver", defaultDriver(), "ms sql odbc driver name")
	msport   = flag.String("msport", "1433", "ms sql server port number")
)

func defaultDriver() string {
	if runtime.GOOS == "windows" {
		return "sql server"
	}
	return "freetds"
}

func isFreeTDS() bool {
	return *msdriver == "freetds"
}

func mssqlConnString() string {
	params := map[string]string{
		"driver":   *msdriver,
		"server":   *mssrv,
		"database": *msdb,
	}
	if isFreeTDS() {
		params["server"] += "," + *msport
		params["TDS_Version"] = "8.0"
	} else if len(*msuser) == 0 {
		params["trusted_connection"] = "yes"
	}
	var c strings.Builder
	for n, v := range params {
		c.WriteString(n + "=" + v + ";")
	}
	return c.String()
}

func mssqlOptions(opts ...turbodbc.Option) []turbodbc.Option {
	if len(*msuser) != 0 {
		opts = append(opts, turbodbc.WithCredentials(*msuser, *mspass))
	}
	return opts
}

func mssqlConnect(t *testing.T, opts ...turbodbc.Option) (*sql.DB, *turbodbc.Environment) {
	if *mssrv == "" {
		t.Skip("set -mssrv to run live ms sql server tests")
	}
	env, err := turbodbc.DefaultEnvironment()
	if err != nil {
		t.Fatal(err)
	}
	return sql.OpenDB(NewConnector(env, mssqlConnString(), mssqlOptions(opts...)...)), env
}

func closeDB(t *testing.T, db *sql.DB, env *turbodbc.Environment) {
	before := env.Snapshot().Statements
	if err := db.Close(); err != nil {
		t.Fatalf("error closing DB: %v", err)
	}
	if after := env.Snapshot().Statements; after != 0 {
		t.Errorf("unexpected statement count after close: before=%v, after=%v", before, after)
	}
}

func exec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	r, err := db.Exec(query, args...)
	if err != nil {
		t.Fatalf("db.Exec(%q ...) failed: %v", query, err)
	}
	if _, err = r.RowsAffected(); err != nil {
		t.Fatalf("r.RowsAffected(%q ...) failed: %v", query, err)
	}
}

func TestMSSQLCreateInsertSelect(t *testing.T) {
	db, env := mssqlConnect(t)
	defer closeDB(t, db, env)

	db.Exec("drop table dbo.temp")
	exec(t, db, `create table dbo.temp (
		id int not null,
		name varchar(20),
		price decimal(10,2),
		seen datetime2,
		flag bit
	)`)
	seen := time.Date(2021, time.March, 4, 5, 6, 7, 123456000, time.UTC)
	exec(t, db, "insert into dbo.temp values (?, ?, ?, ?, ?)", 1, "apple", "1.50", seen, true)
	exec(t, db, "insert into dbo.temp values (?, ?, ?, ?, ?)", 2, nil, nil, nil, nil)

	rows, err := db.Query("select id, name, price, seen, flag from dbo.temp order by id")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var (
		id    int
		name  sql.NullString
		price sql.NullString
		ts    sql.NullTime
		flag  sql.NullBool
	)
	if !rows.Next() {
		t.Fatalf("first row expected: %v", rows.Err())
	}
	if err := rows.Scan(&id, &name, &price, &ts, &flag); err != nil {
		t.Fatal(err)
	}
	if id != 1 || name.String != "apple" || price.String != "1.50" || !ts.Time.Equal(seen) || !flag.Bool {
		t.Fatalf("unexpected first row: %v %v %v %v %v", id, name, price, ts, flag)
	}
	if !rows.Next() {
		t.Fatalf("second row expected: %v", rows.Err())
	}
	if err := rows.Scan(&id, &name, &price, &ts, &flag); err != nil {
		t.Fatal(err)
	}
	if name.Valid || price.Valid || ts.Valid || flag.Valid {
		t.Fatalf("NULLs expected: %v %v %v %v", name, price, ts, flag)
	}
	if rows.Next() {
		t.Fatal("unexpected row")
	}
	rows.Close()

	exec(t, db, "drop table dbo.temp")
}

func TestMSSQLTransactions(t *testing.T) {
	db, env := mssqlConnect(t)
	defer closeDB(t, db, env)

	db.Exec("drop table dbo.temp")
	exec(t, db, "create table dbo.temp (name varchar(20))")

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Exec("insert into dbo.temp (name) values ('alex')"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRow("select count(*) from dbo.temp").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rolled back insert is visible: %d rows", n)
	}

	tx, err = db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Exec("insert into dbo.temp (name) values ('alex')"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("select count(*) from dbo.temp").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("committed insert is missing: %d rows", n)
	}

	exec(t, db, "drop table dbo.temp")
}

func TestMSSQLNextResultSet(t *testing.T) {
	db, env := mssqlConnect(t)
	defer closeDB(t, db, env)

	rows, err := db.Query("select 1 select 2,3")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var v1, v2 int
	if !rows.Next() {
		t.Fatal("expected at least 1 result")
	}
	if err := rows.Scan(&v1); err != nil {
		t.Fatal(err)
	}
	if rows.Next() {
		t.Fatal("unexpected row")
	}
	if !rows.NextResultSet() {
		t.Fatalf("expected another result set: %v", rows.Err())
	}
	if !rows.Next() {
		t.Fatal("expected a single row")
	}
	if err := rows.Scan(&v1, &v2); err != nil {
		t.Fatal(err)
	}
	if v1 != 2 || v2 != 3 {
		t.Fatalf("got wrong values expected v1=%v v2=%v. got v1=%v v2=%v", 2, 3, v1, v2)
	}
	if rows.NextResultSet() {
		t.Fatal("unexpected result set found")
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestMSSQLExecuteMany(t *testing.T) {
	db, env := mssqlConnect(t)
	defer closeDB(t, db, env)

	db.Exec("drop table dbo.temp")
	exec(t, db, "create table dbo.temp (id int, name nvarchar(20))")

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	err = conn.Raw(func(dc interface{}) error {
		cur, err := dc.(*Conn).Connection().Cursor()
		if err != nil {
			return err
		}
		defer cur.Close()
		batch := turbodbc.NewParameterBatch(
			turbodbc.NewParameterColumn(turbodbc.KindInt64, int64(1), int64(2), int64(3)),
			turbodbc.NewParameterColumn(turbodbc.KindVariableString, "один", nil, "three"),
		)
		if err := cur.ExecuteMany("insert into dbo.temp values (?, ?)", batch); err != nil {
			return err
		}
		if n := cur.RowCount(); n != 3 {
			return errors.New("expected 3 rows inserted")
		}
		if err := cur.Execute("select name from dbo.temp order by id"); err != nil {
			return err
		}
		rows, err := cur.FetchAll()
		if err != nil {
			return err
		}
		if len(rows) != 3 || rows[0][0] != "один" || rows[1][0] != nil || rows[2][0] != "three" {
			t.Errorf("unexpected rows: %v", rows)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	exec(t, db, "drop table dbo.temp")
}

func TestMSSQLGrowTruncated(t *testing.T) {
	db, env := mssqlConnect(t,
		turbodbc.WithVarcharMaxCharacterLimit(4),
		turbodbc.WithLimitVarcharResultsToMax(true),
		turbodbc.WithTruncation(turbodbc.TruncationGrow))
	defer closeDB(t, db, env)

	var s string
	if err := db.QueryRow("select cast(replicate('x', 100) as varchar(max))").Scan(&s); err != nil {
		t.Fatal(err)
	}
	if s != strings.Repeat("x", 100) {
		t.Fatalf("value was not refetched in full: %q", s)
	}
}

func TestMSSQLQueryCancel(t *testing.T) {
	db, env := mssqlConnect(t)
	defer closeDB(t, db, env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	_, err := db.ExecContext(ctx, "waitfor delay '00:00:30'")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if d := time.Since(start); d > 10*time.Second {
		t.Fatalf("query was not canceled, took %v", d)
	}
}
