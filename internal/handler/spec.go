package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/query"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// querySpec builds a list spec from the request query string. Paging values
// must be positive when present; absent values fall back to surface defaults
// later. Filter fields are captured with c.GetQuery so a present-but-empty
// filter stays in the spec.
func querySpec(c *gin.Context, filterFields ...string) (query.Spec, error) {
	var spec query.Spec

	if raw, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return spec, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		spec.Page = page
	}
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return spec, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer")
		}
		spec.Limit = limit
	}

	spec.OrderBy = c.Query("orderBy")
	spec.OrderDirection = c.Query("orderDirection")

	for _, field := range filterFields {
		if value, ok := c.GetQuery(field); ok {
			spec.SetFilter(field, value)
		}
	}

	return spec, nil
}
