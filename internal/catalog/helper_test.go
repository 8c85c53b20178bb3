package catalog

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techbar/internal/models"
)

// raw builds a platform category with the given parent and sort order.
// An empty parent or sort order leaves the attribute out.
func raw(slug, parent, sortOrder string) models.RawCategory {
	attrs := map[string][]string{}
	if parent != "" {
		attrs["Parent"] = []string{parent}
	}
	if sortOrder != "" {
		attrs["Sort Order"] = []string{sortOrder}
	}
	return models.RawCategory{Name: slug, Slug: slug, Attributes: attrs}
}

func hidden(r models.RawCategory) models.RawCategory {
	r.Attributes["Hidden"] = []string{"True"}
	return r
}

func withForms(r models.RawCategory, forms ...models.Form) models.RawCategory {
	for _, f := range forms {
		r.Categorizations = append(r.Categorizations, models.Categorization{Form: f})
	}
	return r
}

func slugs(cats []Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Slug
	}
	return out
}

var serviceForm = models.Form{Slug: "laptop-repair", Type: "Service", Status: "Active"}

func threeLevels() *Helper {
	return New([]models.RawCategory{
		raw("c", "b", "1"),
		raw("a", "", "1"),
		raw("b", "a", "2"),
	})
}

func TestHelper_ThreeLevelScenario(t *testing.T) {
	h := threeLevels()

	roots, err := h.RootCategories(Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slugs(roots))

	desc, err := h.Descendants("a", Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, slugs(desc))

	trail, err := h.Trail("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, slugs(trail))

	key, err := h.FullSortOrder("c")
	require.NoError(t, err)
	assert.Equal(t, "0001.0002.0001", key)

	all, err := h.Categories(Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, slugs(all))
}

func TestHelper_TrailEndsWithSelf(t *testing.T) {
	h := threeLevels()
	depths := map[string]int{"a": 1, "b": 2, "c": 3}

	all, err := h.Categories(IncludeHidden)
	require.NoError(t, err)
	for _, c := range all {
		trail, err := h.Trail(c.Slug)
		require.NoError(t, err)
		require.NotEmpty(t, trail)
		assert.Equal(t, c.Slug, trail[len(trail)-1].Slug)
		assert.Len(t, trail, depths[c.Slug], "trail length for %s", c.Slug)
	}
}

func TestHelper_DanglingParentIsRoot(t *testing.T) {
	h := New([]models.RawCategory{
		raw("x", "missing", ""),
		raw("y", "", ""),
	})

	assert.False(t, h.HasParent("x"))
	_, ok := h.Parent("x")
	assert.False(t, ok)

	roots, err := h.RootCategories(Default)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, slugs(roots))

	trail, err := h.Trail("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, slugs(trail))
}

func TestHelper_HiddenCategories(t *testing.T) {
	input := []models.RawCategory{
		raw("root", "", "1"),
		hidden(raw("h", "root", "2")),
		raw("under-h", "h", "1"),
		raw("v", "root", "3"),
	}
	h := New(input, WithIncludeHidden(false))

	all, err := h.Categories(Default)
	require.NoError(t, err)
	assert.NotContains(t, slugs(all), "h")

	children, err := h.Children("root", Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, slugs(children))

	// The filter is applied per level, so the visible category under a
	// hidden one is not reached either.
	desc, err := h.Descendants("root", Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, slugs(desc))

	c, ok := h.Category("h")
	require.True(t, ok)
	assert.True(t, c.Hidden)

	t.Run("per-call override", func(t *testing.T) {
		all, err := h.Categories(IncludeHidden)
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "h", "under-h", "v"}, slugs(all))

		desc, err := h.Descendants("root", IncludeHidden)
		require.NoError(t, err)
		assert.Equal(t, []string{"h", "under-h", "v"}, slugs(desc))
	})

	t.Run("construction flag", func(t *testing.T) {
		withHidden := New(input, WithIncludeHidden(true))
		all, err := withHidden.Categories(Default)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		visible, err := withHidden.Categories(VisibleOnly)
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "under-h", "v"}, slugs(visible))
	})
}

func TestHelper_RootsAndChildrenAreDisjoint(t *testing.T) {
	h := New([]models.RawCategory{
		raw("a", "", "1"),
		raw("b", "a", "1"),
		raw("c", "a", "2"),
		raw("d", "missing", "3"),
		raw("e", "d", "1"),
	})
	roots, err := h.RootCategories(IncludeHidden)
	require.NoError(t, err)
	rootSet := map[string]bool{}
	for _, r := range roots {
		rootSet[r.Slug] = true
	}

	all, err := h.Categories(IncludeHidden)
	require.NoError(t, err)
	for _, c := range all {
		children, err := h.Children(c.Slug, IncludeHidden)
		require.NoError(t, err)
		for _, child := range children {
			assert.False(t, rootSet[child.Slug], "%s is both root and child of %s", child.Slug, c.Slug)
		}
	}
}

func TestHelper_SortOrderAcrossSubtrees(t *testing.T) {
	h := New([]models.RawCategory{
		raw("hardware", "", "2"),
		raw("software", "", "1"),
		raw("laptops", "hardware", "2"),
		raw("phones", "hardware", "1"),
		raw("office", "software", "5"),
		raw("unsorted", "", ""),
	})

	all, err := h.Categories(Default)
	require.NoError(t, err)
	want := []string{"software", "office", "hardware", "phones", "laptops", "unsorted"}
	if diff := cmp.Diff(want, slugs(all)); diff != "" {
		t.Errorf("Categories() order mismatch (-want +got):\n%s", diff)
	}

	key, err := h.FullSortOrder("unsorted")
	require.NoError(t, err)
	assert.Equal(t, "1000", key)
}

func TestHelper_FormCounts(t *testing.T) {
	disallowed := []models.Form{
		{Slug: "template", Type: "Template", Status: "Active"},
		{Slug: "retired", Type: "Service", Status: "Inactive"},
	}
	h := New([]models.RawCategory{
		withForms(raw("empty", "", "1"), disallowed...),
		withForms(raw("parent", "", "2")),
		withForms(raw("child", "parent", "1"), serviceForm),
		hidden(withForms(raw("secret", "parent", "2"), serviceForm)),
	})

	c, ok := h.Category("empty")
	require.True(t, ok)
	assert.Equal(t, 0, c.FormCount)
	assert.Len(t, c.AllForms, 2)

	total, err := h.TotalFormCount("parent")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	for _, slug := range []string{"empty", "parent", "child", "secret"} {
		total, err := h.TotalFormCount(slug)
		require.NoError(t, err)
		empty, err := h.IsEmpty(slug)
		require.NoError(t, err)
		assert.Equal(t, total == 0, empty, "IsEmpty(%s)", slug)
	}
}

func TestHelper_UnknownSlug(t *testing.T) {
	h := threeLevels()

	assert.False(t, h.HasCategory("nope"))
	_, ok := h.Category("nope")
	assert.False(t, ok)
	assert.False(t, h.HasChildren("nope", Default))

	children, err := h.Children("nope", Default)
	assert.NoError(t, err)
	assert.Empty(t, children)

	trail, err := h.Trail("nope")
	assert.NoError(t, err)
	assert.Nil(t, trail)

	total, err := h.TotalFormCount("nope")
	assert.NoError(t, err)
	assert.Zero(t, total)
}

func TestHelper_CyclicHierarchy(t *testing.T) {
	h := New([]models.RawCategory{
		raw("root", "", "1"),
		raw("loop-a", "loop-b", "1"),
		raw("loop-b", "loop-a", "2"),
		raw("self", "self", "3"),
	})

	for _, slug := range []string{"loop-a", "loop-b", "self"} {
		_, err := h.Trail(slug)
		assert.ErrorIs(t, err, ErrCyclicHierarchy, "Trail(%s)", slug)

		_, err = h.FullSortOrder(slug)
		assert.ErrorIs(t, err, ErrCyclicHierarchy, "FullSortOrder(%s)", slug)

		_, err = h.Descendants(slug, Default)
		assert.ErrorIs(t, err, ErrCyclicHierarchy, "Descendants(%s)", slug)
	}

	_, err := h.Categories(Default)
	assert.True(t, errors.Is(err, ErrCyclicHierarchy))

	// Cycle members always have a parent, so the roots are unaffected.
	roots, err := h.RootCategories(Default)
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, slugs(roots))
}

func TestHelper_QueriesAreIdempotent(t *testing.T) {
	h := threeLevels()

	first, err := h.Descendants("a", Default)
	require.NoError(t, err)
	second, err := h.Descendants("a", Default)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	t1, _ := h.Trail("c")
	t2, _ := h.Trail("c")
	assert.Equal(t, t1, t2)
}

func TestHelper_DuplicateSlugKeepsLast(t *testing.T) {
	first := raw("dup", "", "1")
	first.Name = "First"
	second := raw("dup", "", "2")
	second.Name = "Second"

	h := New([]models.RawCategory{first, second})
	assert.Equal(t, 1, h.Len())
	c, _ := h.Category("dup")
	assert.Equal(t, "Second", c.Name)
}

func TestHelper_LargeFlatList(t *testing.T) {
	var input []models.RawCategory
	for i := 0; i < 200; i++ {
		input = append(input, raw("cat-"+strconv.Itoa(i), "", strconv.Itoa(200-i)))
	}
	h := New(input)

	all, err := h.Categories(Default)
	require.NoError(t, err)
	require.Len(t, all, 200)
	assert.Equal(t, "cat-199", all[0].Slug)
	assert.Equal(t, "cat-0", all[199].Slug)
}
