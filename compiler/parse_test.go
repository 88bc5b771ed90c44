package compiler

import (
	"testing"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/lexer"
)

func parseOne(t *testing.T, src string) ast.Statement {
	t.Helper()
	stmts, err := ParseAll(src)
	if err != nil {
		t.Fatalf("ParseAll(%q): %v", src, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("ParseAll(%q): expected 1 statement, got %d", src, len(stmts))
	}
	return stmts[0]
}

func TestParseSelectCSVFilter(t *testing.T) {
	stmt := parseOne(t, `SELECT Symbol, Name FROM './companylist.csv' WHERE Industry='Oil/Gas Transmission'`)
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		t.Fatalf("expected *ast.SelectStmt, got %T", stmt)
	}
	if len(sel.Projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(sel.Projections))
	}
	if sel.Distinct {
		t.Errorf("DISTINCT not present in source, got Distinct=true")
	}
	if sel.Source == nil {
		t.Fatalf("expected a FROM source")
	}
	res, ok := sel.Source.(*ast.DataResource)
	if !ok || res.Path != "./companylist.csv" {
		t.Errorf("expected source DataResource './companylist.csv', got %#v", sel.Source)
	}
	if sel.Where == nil {
		t.Errorf("expected a WHERE condition")
	}
}

func TestParseSelectDistinct(t *testing.T) {
	stmt := parseOne(t, `SELECT DISTINCT Sector FROM './companylist.csv'`)
	sel := stmt.(*ast.SelectStmt)
	if !sel.Distinct {
		t.Errorf("expected Distinct=true")
	}
}

func TestParseSelectNoDistinctNoFrom(t *testing.T) {
	stmt := parseOne(t, `SELECT 1 AS v`)
	sel := stmt.(*ast.SelectStmt)
	if sel.Distinct {
		t.Errorf("expected Distinct=false when DISTINCT absent")
	}
	if sel.Source != nil {
		t.Errorf("expected nil Source when FROM absent, got %#v", sel.Source)
	}
}

func TestParseSelectTopLimitGroupOrder(t *testing.T) {
	stmt := parseOne(t, `SELECT TOP 5 Sector, COUNT(*) AS n FROM './companylist.csv' GROUP BY Sector ORDER BY n DESC LIMIT 10`)
	sel := stmt.(*ast.SelectStmt)
	if sel.Top == nil {
		t.Errorf("expected TOP to be set")
	}
	if sel.Limit == nil {
		t.Errorf("expected LIMIT to be set")
	}
	if len(sel.GroupBy) != 1 || sel.GroupBy[0].Name != "Sector" {
		t.Errorf("expected GROUP BY Sector, got %#v", sel.GroupBy)
	}
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].Name != "n" || sel.OrderBy[0].Ascending {
		t.Errorf("expected ORDER BY n DESC, got %#v", sel.OrderBy)
	}
}

func TestParseSelectIntoOverwrite(t *testing.T) {
	stmt := parseOne(t, `SELECT Symbol, Name INTO './out.csv' WITH CSV FORMAT FROM './companylist.csv'`)
	sel := stmt.(*ast.SelectStmt)
	if sel.IntoMode != ast.IntoInto {
		t.Errorf("expected IntoInto mode, got %v", sel.IntoMode)
	}
	if sel.Target != "./out.csv" {
		t.Errorf("expected target './out.csv', got %q", sel.Target)
	}
	if sel.TargetHints.Empty() {
		t.Errorf("expected non-empty TargetHints from WITH CSV FORMAT")
	}

	stmt2 := parseOne(t, `SELECT Symbol OVERWRITE './out.csv' FROM './companylist.csv'`)
	sel2 := stmt2.(*ast.SelectStmt)
	if sel2.IntoMode != ast.IntoOverwrite {
		t.Errorf("expected IntoOverwrite mode, got %v", sel2.IntoMode)
	}
}

func TestParseInsertValues(t *testing.T) {
	stmt := parseOne(t, `INSERT INTO './out.csv' (Symbol, Name) VALUES ('GE', 'General Electric') VALUES ('IBM', 'IBM Corp')`)
	ins, ok := stmt.(*ast.InsertStmt)
	if !ok {
		t.Fatalf("expected *ast.InsertStmt, got %T", stmt)
	}
	if ins.Overwrite {
		t.Errorf("expected Overwrite=false for INTO")
	}
	if ins.Target != "./out.csv" {
		t.Errorf("expected target './out.csv', got %q", ins.Target)
	}
	if len(ins.Fields) != 2 || ins.Fields[0] != "Symbol" || ins.Fields[1] != "Name" {
		t.Errorf("unexpected fields: %#v", ins.Fields)
	}
	if len(ins.Values) != 2 {
		t.Fatalf("expected 2 VALUES tuples, got %d", len(ins.Values))
	}
	if ins.Select != nil {
		t.Errorf("expected no Select for a VALUES insert")
	}
}

func TestParseInsertSelect(t *testing.T) {
	stmt := parseOne(t, `INSERT OVERWRITE './out.csv' (Symbol, Name) SELECT Symbol, Name FROM './companylist.csv'`)
	ins, ok := stmt.(*ast.InsertStmt)
	if !ok {
		t.Fatalf("expected *ast.InsertStmt, got %T", stmt)
	}
	if !ins.Overwrite {
		t.Errorf("expected Overwrite=true for OVERWRITE")
	}
	if ins.Select == nil {
		t.Fatalf("expected a Select to be set")
	}
	if ins.Values != nil {
		t.Errorf("expected no Values for a SELECT insert")
	}
}

func TestParseDescribe(t *testing.T) {
	stmt := parseOne(t, `DESCRIBE './companylist.csv' LIMIT 5`)
	d, ok := stmt.(*ast.DescribeStmt)
	if !ok {
		t.Fatalf("expected *ast.DescribeStmt, got %T", stmt)
	}
	if d.Source == nil {
		t.Errorf("expected a Source")
	}
	if d.Limit == nil {
		t.Errorf("expected a Limit")
	}
}

func TestParseDeclareAssignSelect(t *testing.T) {
	stmts, err := ParseAll(`DECLARE @x DOUBLE; SET @x = 2 * 3 + 1; SELECT @x AS v`)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	decl, ok := stmts[0].(*ast.DeclareStmt)
	if !ok {
		t.Fatalf("expected *ast.DeclareStmt, got %T", stmts[0])
	}
	if decl.Name != "x" {
		t.Errorf("expected variable name 'x', got %q", decl.Name)
	}
	if decl.Type != ast.CastDouble {
		t.Errorf("expected CastDouble, got %v", decl.Type)
	}

	assign, ok := stmts[1].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", stmts[1])
	}
	if assign.Name != "x" {
		t.Errorf("expected variable name 'x', got %q", assign.Name)
	}
	if assign.Expr == nil {
		t.Errorf("expected a non-nil expression")
	}

	sel, ok := stmts[2].(*ast.SelectStmt)
	if !ok {
		t.Fatalf("expected *ast.SelectStmt, got %T", stmts[2])
	}
	if len(sel.Projections) != 1 || sel.Projections[0].Alias != "v" {
		t.Errorf("expected a single aliased projection 'v', got %#v", sel.Projections)
	}
}

func TestParseDeclareUnknownType(t *testing.T) {
	if _, err := ParseAll(`DECLARE @x FROBNICATE`); err == nil {
		t.Fatalf("expected an error for an unknown DECLARE type")
	}
}

func TestParseShow(t *testing.T) {
	for _, tc := range []struct {
		src    string
		entity ast.ShowEntity
	}{
		{`SHOW VIEWS`, ast.ShowViews},
		{`SHOW CONNECTIONS`, ast.ShowConnections},
		{`SHOW VARIABLES`, ast.ShowVariables},
	} {
		stmt := parseOne(t, tc.src)
		show, ok := stmt.(*ast.ShowStmt)
		if !ok {
			t.Fatalf("%s: expected *ast.ShowStmt, got %T", tc.src, stmt)
		}
		if show.Entity != tc.entity {
			t.Errorf("%s: expected entity %v, got %v", tc.src, tc.entity, show.Entity)
		}
	}
}

func TestParseShowUnknownEntity(t *testing.T) {
	if _, err := ParseAll(`SHOW TABLES`); err == nil {
		t.Fatalf("expected an error for an unrecognised SHOW entity")
	}
}

func TestParseCreateView(t *testing.T) {
	stmt := parseOne(t, `CREATE VIEW techStocks AS SELECT Symbol FROM './companylist.csv' WHERE Sector='Technology'`)
	view, ok := stmt.(*ast.ViewStmt)
	if !ok {
		t.Fatalf("expected *ast.ViewStmt, got %T", stmt)
	}
	if view.Name != "techStocks" {
		t.Errorf("expected view name 'techStocks', got %q", view.Name)
	}
	if view.Query == nil {
		t.Fatalf("expected a non-nil Query")
	}
}

func TestParseConnectDisconnect(t *testing.T) {
	stmt := parseOne(t, `CONNECT TO 'jdbc:mysql://localhost/db' AS mydb`)
	conn, ok := stmt.(*ast.ConnectStmt)
	if !ok {
		t.Fatalf("expected *ast.ConnectStmt, got %T", stmt)
	}
	if conn.Name != "mydb" {
		t.Errorf("expected connection name 'mydb', got %q", conn.Name)
	}

	stmt2 := parseOne(t, `DISCONNECT FROM mydb`)
	disc, ok := stmt2.(*ast.DisconnectStmt)
	if !ok {
		t.Fatalf("expected *ast.DisconnectStmt, got %T", stmt2)
	}
	if disc.Handle != "mydb" {
		t.Errorf("expected handle 'mydb', got %q", disc.Handle)
	}
}

func TestParseAllTrailingSemicolonAndBlankStatements(t *testing.T) {
	stmts, err := ParseAll(`SELECT 1 AS v;;SELECT 2 AS w;`)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
}

func TestParseAllMissingSeparator(t *testing.T) {
	if _, err := ParseAll(`SELECT 1 AS v SELECT 2 AS w`); err == nil {
		t.Fatalf("expected an error when two statements aren't separated by ';'")
	}
}

func TestParseStatementUnknownLeadingToken(t *testing.T) {
	ts := lexer.NewTokenStream(`FROBNICATE something`)
	if _, err := ParseStatement(ts); err == nil {
		t.Fatalf("expected an error for an unrecognised leading token")
	}
}
