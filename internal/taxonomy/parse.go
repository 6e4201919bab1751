package taxonomy

import "strings"

// Subcategory is one "Main.Sub" line from the ledger's category
// worksheet. FullName keeps the dotted form used in ledger rows.
type Subcategory struct {
	ID       int
	Name     string
	FullName string
}

// Category is a main category with its subcategories in input order.
type Category struct {
	ID            int
	Name          string
	Subcategories []Subcategory
}

// Parse turns raw taxonomy lines into categories. Ids come from a
// single counter starting at 1, shared between categories and
// subcategories, assigned in input order. A line without a dot opens a
// new main category. A dotted line is split on the first dot and
// attached to the previously seen main category of that name; if the
// main category has not appeared yet the line is dropped. Blank lines
// are skipped.
func Parse(lines []string) []Category {
	var categories []Category
	index := make(map[string]int) // main category name -> position
	nextID := 1

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dot := strings.Index(line, ".")
		if dot < 0 {
			if pos, ok := index[line]; ok {
				// A repeated main line restarts the category: fresh id,
				// subcategories reset, position kept.
				categories[pos] = Category{ID: nextID, Name: line}
				nextID++
				continue
			}
			index[line] = len(categories)
			categories = append(categories, Category{ID: nextID, Name: line})
			nextID++
			continue
		}

		mainName := strings.TrimSpace(line[:dot])
		subName := strings.TrimSpace(line[dot+1:])
		pos, ok := index[mainName]
		if !ok {
			continue
		}
		categories[pos].Subcategories = append(categories[pos].Subcategories, Subcategory{
			ID:       nextID,
			Name:     subName,
			FullName: mainName + "." + subName,
		})
		nextID++
	}

	return categories
}
