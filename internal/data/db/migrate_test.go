package db

import (
	"regexp"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm/schema"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
)

var (
	indexOnClause    = regexp.MustCompile(`(?is)ON\s+(\w+)\s*\(([^)]*)\)`)
	indexWhereClause = regexp.MustCompile(`(?is)\)\s*WHERE\s+(.+?);`)
	sqlIdentifier    = regexp.MustCompile(`[a-zA-Z_]+`)
)

// Every column an index statement references must exist on the mapped model.
// A stale reference is only caught at boot, when the CREATE INDEX fails and
// the server refuses to start.
func TestIndexStatementsReferenceRealColumns(t *testing.T) {
	models := []any{
		&types.User{},
		&types.UserToken{},
		&types.UserInfo{},
		&types.AcneLevelSet{},
		&types.AreaPrediction{},
		&types.ImagePrediction{},
		&types.TreatmentPlan{},
		&types.TreatmentDay{},
	}
	tables := map[string]map[string]bool{}
	cache := &sync.Map{}
	for _, m := range models {
		s, err := schema.Parse(m, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse %T: %v", m, err)
		}
		cols := map[string]bool{}
		for name := range s.FieldsByDBName {
			cols[name] = true
		}
		tables[s.Table] = cols
	}

	statements := append(append([]indexStatement{}, planIndexes...), predictionIndexes...)
	for _, idx := range statements {
		m := indexOnClause.FindStringSubmatch(idx.sql)
		if m == nil {
			t.Fatalf("%s: no ON clause in %q", idx.name, idx.sql)
		}
		table := m[1]
		cols, ok := tables[table]
		if !ok {
			t.Fatalf("%s: table %q has no mapped model", idx.name, table)
		}

		refs := indexedColumns(m[2])
		if w := indexWhereClause.FindStringSubmatch(idx.sql); w != nil {
			refs = append(refs, predicateColumns(w[1])...)
		}
		if len(refs) == 0 {
			t.Fatalf("%s: no columns parsed from %q", idx.name, idx.sql)
		}
		for _, col := range refs {
			if !cols[col] {
				t.Errorf("%s: references column %q which does not exist on table %q", idx.name, col, table)
			}
		}
	}
}

// indexedColumns extracts the column names from a comma-separated index
// column list, dropping ordering qualifiers like ASC and DESC.
func indexedColumns(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			out = append(out, strings.ToLower(fields[0]))
		}
	}
	return out
}

// predicateColumns extracts the column identifiers from a partial-index
// WHERE clause.
func predicateColumns(expr string) []string {
	keywords := map[string]bool{
		"is": true, "not": true, "null": true,
		"and": true, "or": true, "true": true, "false": true,
	}
	var out []string
	for _, tok := range sqlIdentifier.FindAllString(expr, -1) {
		if lower := strings.ToLower(tok); !keywords[lower] {
			out = append(out, lower)
		}
	}
	return out
}
