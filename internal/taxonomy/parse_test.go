package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FlatList(t *testing.T) {
	cats := Parse([]string{"Housing", "Transportation", "Food"})

	require.Len(t, cats, 3)
	for i, name := range []string{"Housing", "Transportation", "Food"} {
		assert.Equal(t, i+1, cats[i].ID, "ids are sequential in input order")
		assert.Equal(t, name, cats[i].Name)
		assert.Empty(t, cats[i].Subcategories)
	}
}

func TestParse_SharedIDCounter(t *testing.T) {
	cats := Parse([]string{"Food", "Food.Groceries", "Health.Hair"})

	require.Len(t, cats, 1)
	assert.Equal(t, 1, cats[0].ID)
	assert.Equal(t, "Food", cats[0].Name)

	require.Len(t, cats[0].Subcategories, 1)
	sub := cats[0].Subcategories[0]
	assert.Equal(t, 2, sub.ID, "subcategory draws from the same counter")
	assert.Equal(t, "Groceries", sub.Name)
	assert.Equal(t, "Food.Groceries", sub.FullName)
	// Health.Hair is dropped: no Health category precedes it.
}

func TestParse_OrphanSubcategoryDoesNotConsumeID(t *testing.T) {
	cats := Parse([]string{"Health.Hair", "Food", "Food.Groceries"})

	require.Len(t, cats, 1)
	assert.Equal(t, 1, cats[0].ID)
	require.Len(t, cats[0].Subcategories, 1)
	assert.Equal(t, 2, cats[0].Subcategories[0].ID)
}

func TestParse_SplitsOnFirstDot(t *testing.T) {
	cats := Parse([]string{"Travel", "Travel.Food.Extra"})

	require.Len(t, cats, 1)
	require.Len(t, cats[0].Subcategories, 1)
	assert.Equal(t, "Food.Extra", cats[0].Subcategories[0].Name)
	assert.Equal(t, "Travel.Food.Extra", cats[0].Subcategories[0].FullName)
}

func TestParse_SkipsBlanksAndTrims(t *testing.T) {
	cats := Parse([]string{"", "  Food  ", "   ", " Food . Groceries "})

	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name)
	require.Len(t, cats[0].Subcategories, 1)
	assert.Equal(t, "Groceries", cats[0].Subcategories[0].Name)
	assert.Equal(t, "Food.Groceries", cats[0].Subcategories[0].FullName)
}

func TestParse_CaseSensitiveMainMatch(t *testing.T) {
	cats := Parse([]string{"food", "Food.Groceries"})

	require.Len(t, cats, 1)
	assert.Empty(t, cats[0].Subcategories, "main category match is case-sensitive")
}

func TestParse_SubcategoryOrderFollowsInput(t *testing.T) {
	cats := Parse([]string{"Travel", "Travel.Food", "Travel.Accommodation", "Travel.Transportation"})

	require.Len(t, cats, 1)
	subs := cats[0].Subcategories
	require.Len(t, subs, 3)
	assert.Equal(t, []string{"Food", "Accommodation", "Transportation"},
		[]string{subs[0].Name, subs[1].Name, subs[2].Name})
	assert.Equal(t, []int{2, 3, 4}, []int{subs[0].ID, subs[1].ID, subs[2].ID})
}

func TestParse_DuplicateMainRestartsCategory(t *testing.T) {
	cats := Parse([]string{"Food", "Food.Groceries", "Food", "Food.Bars"})

	require.Len(t, cats, 1, "a repeated main line must not add a second entry")
	assert.Equal(t, "Food", cats[0].Name)
	assert.Equal(t, 3, cats[0].ID, "the later line wins and draws a fresh id")

	require.Len(t, cats[0].Subcategories, 1, "subcategories seen before the repeat are discarded")
	assert.Equal(t, "Bars", cats[0].Subcategories[0].Name)
	assert.Equal(t, 4, cats[0].Subcategories[0].ID)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(nil))
	assert.Empty(t, Parse([]string{"", "  "}))
}
