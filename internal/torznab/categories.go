// Package torznab holds the Torznab/Jackett compatibility layer: the
// JSON result shape download automation tools consume, the XML feed and
// caps documents, and the Newznab category tables.
package torznab

// Standard Newznab categories
// https://newznab.readthedocs.io/en/latest/misc/api/#predefined-categories
const (
	CategoryConsole = 1000
	CategoryMovies  = 2000
	CategoryAudio   = 3000
	CategoryPC      = 4000
	CategoryTV      = 5000
	CategoryXXX     = 6000
	CategoryBooks   = 7000
	CategoryOther   = 8000
)

// labelCategories maps the category labels scraped sites emit onto
// Newznab categories. Documentaries are filed under the 7000 block.
var labelCategories = map[string][]int{
	"Películas":     {CategoryMovies},
	"Movies":        {CategoryMovies},
	"Series":        {CategoryTV},
	"Documentales":  {CategoryBooks},
	"Documentaries": {CategoryBooks},
}

// CategoriesForLabel returns the Newznab categories for a scraped
// category label. Unknown labels fall back to Other.
func CategoriesForLabel(label string) []int {
	if cats, ok := labelCategories[label]; ok {
		return cats
	}
	return []int{CategoryOther}
}

// CategoryName returns a human-readable name for a category.
func CategoryName(id int) string {
	names := map[int]string{
		CategoryConsole: "Console",
		CategoryMovies:  "Movies",
		CategoryAudio:   "Audio",
		CategoryPC:      "PC",
		CategoryTV:      "TV",
		CategoryXXX:     "XXX",
		CategoryBooks:   "Books",
		CategoryOther:   "Other",
	}
	if name, ok := names[id]; ok {
		return name
	}
	return "Unknown"
}
