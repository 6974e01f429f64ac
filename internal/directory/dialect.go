package directory

import (
	"strconv"
	"strings"

	"github.com/hetulpatel/employees/internal/employee"
)

// dialect captures the SQL differences between the supported backends.
type dialect struct {
	name           string
	schema         string
	placeholder    func(n int) string
	prefixMatch    func(param string) string
	birthDateExpr  string
	orderBy        string
	birthDateValue func(employee.Employee) any
}

func (d dialect) birthDateArg(e employee.Employee) any {
	return d.birthDateValue(e)
}

// selectQuery builds the listing statement. User values only ever travel as
// bound parameters.
func (d dialect) selectQuery(f Filters) (string, []any) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString("SELECT id, full_name, ")
	sb.WriteString(d.birthDateExpr)
	sb.WriteString(", gender FROM employees")

	if f.Gender != "" {
		args = append(args, f.Gender)
		conds = append(conds, "gender = "+d.placeholder(len(args)))
	}
	if f.NamePrefix != "" {
		args = append(args, f.NamePrefix)
		conds = append(conds, d.prefixMatch(d.placeholder(len(args))))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(d.orderBy)
	return sb.String(), args
}

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS employees (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	birth_date TEXT NOT NULL,
	gender TEXT NOT NULL
);
`

// SQLite LIKE folds ASCII case, so prefixes are compared with substr instead.
var sqliteDialect = dialect{
	name:        "sqlite",
	schema:      sqliteSchemaSQL,
	placeholder: func(n int) string { return "?" + strconv.Itoa(n) },
	prefixMatch: func(p string) string {
		return "substr(full_name, 1, length(" + p + ")) = " + p
	},
	birthDateExpr: "birth_date",
	orderBy:       "full_name, id",
	birthDateValue: func(e employee.Employee) any {
		return e.BirthDateString()
	},
}

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS employees (
	id BIGSERIAL PRIMARY KEY,
	full_name VARCHAR(255) NOT NULL,
	birth_date DATE NOT NULL,
	gender VARCHAR(10) NOT NULL
);
`

var postgresDialect = dialect{
	name:        "postgres",
	schema:      postgresSchemaSQL,
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	prefixMatch: func(p string) string {
		return "starts_with(full_name, " + p + ")"
	},
	birthDateExpr: "to_char(birth_date, 'YYYY-MM-DD')",
	orderBy:       `full_name COLLATE "C", id`,
	birthDateValue: func(e employee.Employee) any {
		return e.BirthDate
	},
}
