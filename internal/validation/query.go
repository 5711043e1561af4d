package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jaekwang-park/project-board/internal/model"
)

// ListQuery is the raw, untrusted listing query string.
type ListQuery struct {
	Search    string `json:"search,omitempty"`
	Status    string `json:"status,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
	Page      string `json:"page,omitempty"`
}

// Resolve validates the query and returns safe filters, sort and page.
// Sort, direction and page fall back to defaults when unrecognised; they
// never reach SQL unchecked. Search length and status are hard errors.
func (q ListQuery) Resolve() (model.ProjectFilters, model.ProjectSort, int, Errors) {
	errs := Errors{}

	filters := model.ProjectFilters{Search: strings.TrimSpace(q.Search)}
	if utf8.RuneCountInString(filters.Search) > MaxSearchLength {
		errs.Add("search", fmt.Sprintf("The search field must not be greater than %d characters.", MaxSearchLength))
	}
	if s := strings.TrimSpace(q.Status); s != "" {
		status := model.ProjectStatus(s)
		if !status.IsValid() {
			errs.Add("status", "The selected status is invalid.")
		} else {
			filters.Status = status
		}
	}

	sort := model.DefaultSort()
	if f := model.SortField(strings.TrimSpace(q.Sort)); f.IsValid() {
		sort.Field = f
	}
	if d := model.SortDirection(strings.ToLower(strings.TrimSpace(q.Direction))); d.IsValid() {
		sort.Direction = d
	}

	page := 1
	if n, err := strconv.Atoi(strings.TrimSpace(q.Page)); err == nil && n > 0 {
		page = n
	}

	return filters, sort, page, errs
}
