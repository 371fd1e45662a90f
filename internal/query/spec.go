package query

import (
	"strings"

	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// Sort directions accepted on list requests.
const (
	DirectionAsc  = "ASC"
	DirectionDesc = "DESC"
)

// Spec carries one list request: the four control fields and the free-form
// filter fields, split explicitly. Control fields are never compiled into
// predicates; filter fields never influence paging or ordering.
type Spec struct {
	Page           int
	Limit          int
	OrderBy        string
	OrderDirection string
	Filters        map[string]string
}

// Defaults holds the per-surface fallback values applied by Normalize.
type Defaults struct {
	Page           int
	Limit          int
	OrderBy        string
	OrderDirection string
}

// CourseDefaults are shared by the course and content surfaces.
var CourseDefaults = Defaults{
	Page:           1,
	Limit:          10,
	OrderBy:        "dateCreated",
	OrderDirection: DirectionDesc,
}

// UserDefaults leave OrderBy empty: the user surface ignores caller ordering
// and always sorts by first name then last name.
var UserDefaults = Defaults{
	Page:  1,
	Limit: 10,
}

// SetFilter records a filter field. A present-but-empty value is kept; an
// empty filter matches every row.
func (s *Spec) SetFilter(field, value string) {
	if s.Filters == nil {
		s.Filters = make(map[string]string)
	}
	s.Filters[field] = value
}

// Normalize fills absent control fields with the surface defaults.
func (s *Spec) Normalize(d Defaults) {
	if s.Page == 0 {
		s.Page = d.Page
	}
	if s.Limit == 0 {
		s.Limit = d.Limit
	}
	if s.OrderBy == "" {
		s.OrderBy = d.OrderBy
	}
	if s.OrderDirection == "" {
		s.OrderDirection = d.OrderDirection
	}
}

// Validate rejects non-positive paging values instead of passing them to the
// store, where they would turn into a negative offset or a full scan.
func (s Spec) Validate() error {
	if s.Page < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
	}
	if s.Limit < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
	}
	return nil
}

// Direction resolves the effective sort direction: only an explicit or
// defaulted DESC sorts descending, anything else falls back to ASC.
func (s Spec) Direction() string {
	if strings.ToUpper(s.OrderDirection) == DirectionDesc {
		return DirectionDesc
	}
	return DirectionAsc
}
