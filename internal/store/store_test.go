package store

import "testing"

func TestRebindPostgresNumbersPlaceholders(t *testing.T) {
	s := &Store{dialect: Postgres}
	got := s.rebind(`INSERT INTO runs (id, program_id) VALUES (?, ?)`)
	want := `INSERT INTO runs (id, program_id) VALUES ($1, $2)`
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
}

func TestRebindNonPostgresLeavesPlaceholdersAlone(t *testing.T) {
	for _, d := range []Dialect{SQLite, SQLitePure, MySQL, SQLServer} {
		s := &Store{dialect: d}
		query := `SELECT * FROM programs WHERE id = ?`
		if got := s.rebind(query); got != query {
			t.Fatalf("dialect %s: rebind = %q, want unchanged %q", d, got, query)
		}
	}
}

func TestJoinSplitOutputsRoundTrip(t *testing.T) {
	outputs := []string{"14", "0", "123456789"}
	joined := joinOutputs(outputs)
	if joined != "14,0,123456789" {
		t.Fatalf("joinOutputs = %q", joined)
	}
	got := splitOutputs(joined)
	if len(got) != len(outputs) {
		t.Fatalf("splitOutputs length = %d, want %d", len(got), len(outputs))
	}
	for i, o := range outputs {
		if got[i] != o {
			t.Fatalf("splitOutputs[%d] = %q, want %q", i, got[i], o)
		}
	}
}

func TestSplitOutputsEmptyStringIsNil(t *testing.T) {
	if got := splitOutputs(""); got != nil {
		t.Fatalf("splitOutputs(\"\") = %v, want nil", got)
	}
}

func TestJoinOutputsEmptySlice(t *testing.T) {
	if got := joinOutputs(nil); got != "" {
		t.Fatalf("joinOutputs(nil) = %q, want empty", got)
	}
}
