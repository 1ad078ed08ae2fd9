package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() []Employee {
	return []Employee{
		{ID: "E1", Name: "John Smith"},
		{ID: "E2", Name: "Jane Doe"},
		{ID: "E3", Name: "Jonathan Smithers", PayrollCalendarID: "CAL"},
		{ID: "", Name: "No Identifier"},
	}
}

func TestMatchExactIsAutomatic(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)

	res := m.Match("  john smith ", true)
	assert.Equal(t, High, res.Confidence)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, "E1", res.MatchedID)
	assert.True(t, res.Automatic())
}

func TestMatchEmptyName(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)
	res := m.Match("   ", false)
	assert.Equal(t, NoMatch, res.Confidence)
	assert.True(t, res.RequiresConfirmation)
	assert.Empty(t, res.MatchedID)
}

func TestMatchDoesNotConfuseDifferentSurnames(t *testing.T) {
	m := NewMatcher([]Employee{{ID: "E1", Name: "John Smith"}}, DefaultOptions(), nil)
	res := m.Match("John Doe", false)
	assert.Equal(t, NoMatch, res.Confidence)
	assert.Empty(t, res.MatchedName)
	assert.False(t, res.Automatic())

	m.SetRoster(testRoster())
	res = m.Match("John Doe", false)
	assert.False(t, res.Automatic())
	assert.NotEqual(t, High, res.Confidence)
	assert.NotEqual(t, "John Smith", res.MatchedName)
}

func TestMatchFuzzyHighHonoursConfirmationMode(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)

	confirm := m.Match("Jonathon Smithers", true)
	assert.Equal(t, High, confirm.Confidence)
	assert.Equal(t, "E3", confirm.MatchedID)
	assert.Greater(t, confirm.Score, 92.5)
	assert.Less(t, confirm.Score, 100.0)
	assert.True(t, confirm.RequiresConfirmation)
	require.NotEmpty(t, confirm.Suggestions)
	assert.Equal(t, "E3", confirm.Suggestions[0].ID)

	auto := m.Match("Jonathon Smithers", false)
	assert.True(t, auto.Automatic())
}

func TestMatchTiers(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)
	res := m.Match("Jon Smith", false)
	assert.Equal(t, Medium, res.Confidence)
	assert.Equal(t, "E1", res.MatchedID)
	assert.True(t, res.RequiresConfirmation)
	assert.LessOrEqual(t, len(res.Suggestions), DefaultOptions().MaxSuggestions)
}

func TestSetRosterFlushesCache(t *testing.T) {
	cache := NewCache()
	m := NewMatcher(testRoster(), DefaultOptions(), cache)
	assert.Equal(t, High, m.Match("Jane Doe", false).Confidence)
	assert.Equal(t, 1, cache.Len())

	m.SetRoster([]Employee{{ID: "E9", Name: "Someone Else"}})
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, NoMatch, m.Match("Jane Doe", false).Confidence)
}

func TestSetRosterWinsOverConcurrentMatches(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Match("Jane Doe", false)
			}
		}()
	}
	m.SetRoster([]Employee{{ID: "E9", Name: "Someone Else"}})
	wg.Wait()

	assert.Equal(t, NoMatch, m.Match("Jane Doe", false).Confidence)
}

func TestForgetDropsConfirmation(t *testing.T) {
	cache := NewCache()
	m := NewMatcher(testRoster(), DefaultOptions(), cache)
	require.True(t, m.Confirm("J. Doe", "E2"))
	m.Match("John Smith", false)
	assert.Equal(t, 3, cache.Len())

	m.Forget(" J. Doe ")
	assert.Equal(t, 1, cache.Len())
	for _, mode := range []bool{true, false} {
		res := m.Match("J. Doe", mode)
		assert.NotEqual(t, 100.0, res.Score)
		assert.False(t, res.Automatic())
	}
}

func TestConfirm(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)
	assert.False(t, m.Confirm("J. Doe", "missing"))
	require.True(t, m.Confirm("J. Doe", "E2"))

	for _, mode := range []bool{true, false} {
		res := m.Match("J. Doe", mode)
		assert.True(t, res.Automatic())
		assert.Equal(t, "Jane Doe", res.MatchedName)
		assert.Equal(t, 100.0, res.Score)
	}
}

func TestBatchHelpersAndStatistics(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)
	names := []string{"John Smith", "Jonathon Smithers", "Zzz Qqq"}

	batch := m.MatchBatch(names, true)
	require.Len(t, batch, 3)
	assert.Equal(t, "E1", batch["John Smith"].MatchedID)

	assert.Equal(t, []string{"Zzz Qqq"}, m.Unmatched(names))

	ambiguous := m.Ambiguous(names)
	require.Len(t, ambiguous, 1)
	assert.Equal(t, "Jonathon Smithers", ambiguous[0].Input)

	st := m.Statistics(names)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Exact)
	assert.Equal(t, 1, st.Fuzzy)
	assert.Equal(t, 1, st.None)
	assert.Equal(t, 2, st.RequiresConfirmation)
	assert.InDelta(t, 66.67, st.MatchRate, 0.01)

	assert.Equal(t, Statistics{}, m.Statistics(nil))
}

func TestRosterSkipsIncompleteEntries(t *testing.T) {
	m := NewMatcher(testRoster(), DefaultOptions(), nil)
	assert.Len(t, m.Roster(), 3)
	_, ok := m.Employee("")
	assert.False(t, ok)
}
