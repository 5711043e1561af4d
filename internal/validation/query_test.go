package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/validation"
)

func TestListQuery_Resolve_Defaults(t *testing.T) {
	filters, sort, page, errs := validation.ListQuery{}.Resolve()

	assert.True(t, errs.Empty())
	assert.Equal(t, model.ProjectFilters{}, filters)
	assert.Equal(t, model.DefaultSort(), sort)
	assert.Equal(t, 1, page)
}

func TestListQuery_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		query       validation.ListQuery
		wantFilters model.ProjectFilters
		wantSort    model.ProjectSort
		wantPage    int
		wantErr     []string
	}{
		{
			name:        "all set",
			query:       validation.ListQuery{Search: " alpha ", Status: "completed", Sort: "name", Direction: "ASC", Page: "3"},
			wantFilters: model.ProjectFilters{Search: "alpha", Status: model.ProjectStatusCompleted},
			wantSort:    model.ProjectSort{Field: model.SortByName, Direction: model.SortAsc},
			wantPage:    3,
		},
		{
			name:     "injection attempt in sort falls back",
			query:    validation.ListQuery{Sort: "name; DROP TABLE projects", Direction: "sideways"},
			wantSort: model.DefaultSort(),
			wantPage: 1,
		},
		{
			name:     "non-positive page",
			query:    validation.ListQuery{Page: "-2"},
			wantSort: model.DefaultSort(),
			wantPage: 1,
		},
		{
			name:     "unknown status filter",
			query:    validation.ListQuery{Status: "archived"},
			wantSort: model.DefaultSort(),
			wantPage: 1,
			wantErr:  []string{"status"},
		},
		{
			name:        "search too long",
			query:       validation.ListQuery{Search: strings.Repeat("s", validation.MaxSearchLength+1)},
			wantFilters: model.ProjectFilters{Search: strings.Repeat("s", validation.MaxSearchLength+1)},
			wantSort:    model.DefaultSort(),
			wantPage:    1,
			wantErr:     []string{"search"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, sort, page, errs := tt.query.Resolve()
			assert.Equal(t, tt.wantFilters, filters)
			assert.Equal(t, tt.wantSort, sort)
			assert.Equal(t, tt.wantPage, page)
			if tt.wantErr == nil {
				assert.True(t, errs.Empty())
			} else {
				assert.Equal(t, tt.wantErr, errs.Fields())
			}
		})
	}
}
