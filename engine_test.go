package qwery

import (
	"context"
	"io"
	"testing"
)

func TestRunCSVFilter(t *testing.T) {
	eng := New(Config{})
	ctx := context.Background()

	rs, err := eng.RunOne(ctx, `SELECT Symbol, Name FROM './testdata/companylist.csv' WHERE Industry='Oil/Gas Transmission'`)
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	defer rs.Close(ctx)

	var symbols []string
	for {
		row, err := rs.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		v, ok := row.Get("Symbol")
		if !ok {
			t.Fatalf("expected a Symbol column, got %#v", row.Names())
		}
		symbols = append(symbols, v.String())
	}
	if len(symbols) != 3 {
		t.Fatalf("expected 3 rows (GE, XOM, CVX), got %d: %v", len(symbols), symbols)
	}
}

func TestRunGroupByAggregation(t *testing.T) {
	eng := New(Config{})
	ctx := context.Background()

	rs, err := eng.RunOne(ctx, `SELECT Sector, COUNT(*) AS n FROM './testdata/companylist.csv' GROUP BY Sector ORDER BY Sector ASC`)
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	defer rs.Close(ctx)

	counts := map[string]int64{}
	for {
		row, err := rs.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		sector, _ := row.Get("Sector")
		n, _ := row.Get("n")
		counts[sector.String()] = n.Int64()
	}
	if counts["Technology"] != 2 {
		t.Errorf("expected 2 Technology rows, got %d", counts["Technology"])
	}
	if counts["Energy"] != 2 {
		t.Errorf("expected 2 Energy rows, got %d", counts["Energy"])
	}
	if counts["Industrial"] != 1 {
		t.Errorf("expected 1 Industrial row, got %d", counts["Industrial"])
	}
}

func TestRunDeclareSetSelectSequence(t *testing.T) {
	eng := New(Config{})
	ctx := context.Background()

	rs, err := eng.Run(ctx, `DECLARE @x DOUBLE; SET @x = 2 * 3 + 1; SELECT @x AS v`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer rs.Close(ctx)

	row, err := rs.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	v, ok := row.Get("v")
	if !ok {
		t.Fatalf("expected a 'v' column, got %#v", row.Names())
	}
	if v.Int64() != 7 {
		t.Errorf("expected @x = 2*3+1 = 7, got %v", v.Int64())
	}

	if _, err := rs.Next(ctx); err != io.EOF {
		t.Errorf("expected exactly one result row, got extra row or non-EOF error: %v", err)
	}
}

func TestRunDescribe(t *testing.T) {
	eng := New(Config{})
	ctx := context.Background()

	rs, err := eng.RunOne(ctx, `DESCRIBE './testdata/companylist.csv'`)
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	defer rs.Close(ctx)

	var names []string
	for {
		row, err := rs.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		name, _ := row.Get("Column")
		names = append(names, name.String())
	}
	if len(names) != 4 {
		t.Fatalf("expected 4 described columns, got %d: %v", len(names), names)
	}
}

func TestRunInsertValues(t *testing.T) {
	eng := New(Config{})
	ctx := context.Background()

	dir := t.TempDir()
	out := dir + "/out.csv"

	rs, err := eng.RunOne(ctx, `INSERT OVERWRITE '`+out+`' (Symbol, Name) VALUES ('GE', 'General Electric') VALUES ('IBM', 'IBM Corp')`)
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	rs.Close(ctx)

	rs2, err := eng.RunOne(ctx, `SELECT Symbol, Name FROM '`+out+`'`)
	if err != nil {
		t.Fatalf("re-reading inserted file: %v", err)
	}
	defer rs2.Close(ctx)

	var count int
	for {
		_, err := rs2.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 rows written, got %d", count)
	}
}

func TestWarningsEmptyByDefault(t *testing.T) {
	eng := New(Config{})
	if w := eng.Warnings(); len(w) != 0 {
		t.Errorf("expected no warnings on a fresh engine, got %v", w)
	}
}
