package pgstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"chatsync/internal/app/store"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}

// buildSelect renders q as one statement returning a JSON array of row
// objects in query order.
func buildSelect(q store.Query) (string, []any, error) {
	if q.Table == "" {
		return "", nil, errors.New("pgstore: query without table")
	}

	columns := "*"
	if len(q.Columns) > 0 {
		columns = identList(q.Columns)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, ident(q.Table))

	args := make([]any, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s = $%d", ident(f.Column), len(args))
	}

	for i, o := range q.Order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		direction := "DESC"
		if o.Ascending {
			direction = "ASC"
		}
		fmt.Fprintf(&b, "%s %s", ident(o.Column), direction)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return fmt.Sprintf("SELECT coalesce(json_agg(t), '[]'::json) FROM (%s) AS t", b.String()), args, nil
}

// buildInsert renders an insert of the JSON object form of row. Only the keys
// present in the object are written, so omitted columns keep their defaults.
func buildInsert(table string, row any) (string, []any, error) {
	if table == "" {
		return "", nil, errors.New("pgstore: insert without table")
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return "", nil, fmt.Errorf("pgstore: encode row: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", nil, fmt.Errorf("pgstore: row is not an object: %w", err)
	}
	if len(fields) == 0 {
		return "", nil, errors.New("pgstore: insert of empty row")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := identList(keys)
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM json_populate_record(NULL::%s, $1::json)",
		ident(table), columns, columns, ident(table),
	)

	return sql, []any{string(raw)}, nil
}
