package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jaekwang-park/project-board/internal/model"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 5000
	MaxSearchLength      = 255
)

// ProjectInput is the field set shared by the create and update forms.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Normalize trims surrounding whitespace from every field.
func (in ProjectInput) Normalize() ProjectInput {
	return ProjectInput{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Status:      strings.TrimSpace(in.Status),
	}
}

func (in ProjectInput) Validate() Errors {
	errs := Errors{}
	in = in.Normalize()

	switch {
	case in.Name == "":
		errs.Add("name", "The name field is required.")
	case utf8.RuneCountInString(in.Name) > MaxNameLength:
		errs.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", MaxNameLength))
	}

	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		errs.Add("description", fmt.Sprintf("The description field must not be greater than %d characters.", MaxDescriptionLength))
	}

	switch {
	case in.Status == "":
		errs.Add("status", "The status field is required.")
	case !model.ProjectStatus(in.Status).IsValid():
		errs.Add("status", "The selected status is invalid.")
	}

	return errs
}
