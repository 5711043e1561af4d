package model

import "strconv"

// ProjectsPerPage is the fixed page size of the project listing.
const ProjectsPerPage = 10

type SortField string

const (
	SortByName      SortField = "name"
	SortByStatus    SortField = "status"
	SortByCreatedAt SortField = "created_at"
)

func (f SortField) IsValid() bool {
	return f == SortByName || f == SortByStatus || f == SortByCreatedAt
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

type ProjectFilters struct {
	Search string        `json:"search"`
	Status ProjectStatus `json:"status"`
}

type ProjectSort struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort lists newest projects first.
func DefaultSort() ProjectSort {
	return ProjectSort{Field: SortByCreatedAt, Direction: SortDesc}
}

type ProjectListParams struct {
	UserID  string
	Filters ProjectFilters
	Sort    ProjectSort
	Page    int
	PerPage int
}

// Offset returns the row offset for the requested page.
func (p ProjectListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

type PageLink struct {
	URL    string `json:"url,omitempty"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type ProjectPage struct {
	Data        []Project  `json:"data"`
	CurrentPage int        `json:"current_page"`
	LastPage    int        `json:"last_page"`
	PerPage     int        `json:"per_page"`
	Total       int        `json:"total"`
	From        int        `json:"from"`
	To          int        `json:"to"`
	Links       []PageLink `json:"links"`
}

// NewProjectPage computes pagination metadata for a fetched slice of rows.
func NewProjectPage(data []Project, page, perPage, total int) ProjectPage {
	if data == nil {
		data = []Project{}
	}
	if perPage <= 0 {
		perPage = ProjectsPerPage
	}
	if page < 1 {
		page = 1
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	p := ProjectPage{
		Data:        data,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
	if len(data) > 0 {
		p.From = (page-1)*perPage + 1
		p.To = p.From + len(data) - 1
	}
	return p
}

// IndexOf returns the position of the project with the given id, or -1.
func (p ProjectPage) IndexOf(projectID string) int {
	for i, pr := range p.Data {
		if pr.ID == projectID {
			return i
		}
	}
	return -1
}

// BuildLinks fills Links with previous/numbered/next entries.
// urlFor renders the URL of a given page number.
func (p *ProjectPage) BuildLinks(urlFor func(page int) string) {
	links := make([]PageLink, 0, p.LastPage+2)

	prev := PageLink{Label: "&laquo; Previous"}
	if p.CurrentPage > 1 {
		prev.URL = urlFor(p.CurrentPage - 1)
	}
	links = append(links, prev)

	for i := 1; i <= p.LastPage; i++ {
		links = append(links, PageLink{
			URL:    urlFor(i),
			Label:  strconv.Itoa(i),
			Active: i == p.CurrentPage,
		})
	}

	next := PageLink{Label: "Next &raquo;"}
	if p.CurrentPage < p.LastPage {
		next.URL = urlFor(p.CurrentPage + 1)
	}
	links = append(links, next)

	p.Links = links
}
