package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"desa-api/internal/village"
)

func ids(rs []village.Record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestTopNStable(t *testing.T) {
	cases := map[string]int{"a": 3, "b": 7, "c": 3, "d": 7, "e": 1, "f": 3}
	var rs []village.Record
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		r := rec(id)
		r.Disease.InfectiousCases = cases[id]
		rs = append(rs, r)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "f"}, ids(TopRisk(rs)))
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, ids(rs), "input must not be reordered")
}

func TestTopNBounds(t *testing.T) {
	rs := []village.Record{rec("a"), rec("b")}
	assert.Len(t, TopN(rs, InfectiousCases, 10), 2)
	assert.Empty(t, TopN(rs, InfectiousCases, 0))
	assert.Empty(t, TopN(nil, InfectiousCases, 5))
}

func TestTopEconomy(t *testing.T) {
	a, b, c := rec("a"), rec("b"), rec("c")
	a.Economy.Markets = 1
	b.Economy.Markets, b.Economy.Bumdes = 1, 2
	c.Economy.Bumdes = 1
	got := TopEconomy([]village.Record{a, b, c})
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))

	es := Entries(got, MarketsAndBumdes)
	assert.Equal(t, Entry{Rank: 1, ID: "b", Name: "Desa b", Value: 3}, es[0])
}
