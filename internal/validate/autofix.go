package validate

import (
	"fmt"

	"docuform/internal/schema"
)

// minFixedExtent is the extent given to elements whose size collapsed to
// zero or negative.
const minFixedExtent = 1.0

// AutoFix repairs the structural defects a renderer cannot tolerate: missing
// types, non-positive sizes, and missing or duplicate element ids. It is the
// only routine that mutates a template after synthesis. Overlaps and
// educational issues are intentionally left alone. Returns a description of
// each applied fix.
func AutoFix(t *schema.Template) []string {
	var fixes []string
	for pi := range t.Pages {
		page := &t.Pages[pi]
		seen := make(map[string]bool, len(page.Elements))
		for ei := range page.Elements {
			el := &page.Elements[ei]
			if el.Type == "" {
				el.Type = schema.ElementText
				fixes = append(fixes, fmt.Sprintf("page %d: defaulted type of %s to text", page.Number, el.ID))
			}
			if el.Size.Width <= 0 {
				el.Size.Width = minFixedExtent
				fixes = append(fixes, fmt.Sprintf("page %d: raised width of %s to %g", page.Number, el.ID, minFixedExtent))
			}
			if el.Size.Height <= 0 {
				el.Size.Height = minFixedExtent
				fixes = append(fixes, fmt.Sprintf("page %d: raised height of %s to %g", page.Number, el.ID, minFixedExtent))
			}
			if el.ID == "" || seen[el.ID] {
				old := el.ID
				el.ID = fmt.Sprintf("p%d-fix%d", page.Number, ei+1)
				fixes = append(fixes, fmt.Sprintf("page %d: reassigned id %q to %s", page.Number, old, el.ID))
			}
			seen[el.ID] = true
		}
	}
	return fixes
}
