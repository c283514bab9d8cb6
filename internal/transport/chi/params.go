package chi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	searchuc "github.com/kailas-cloud/talentsearch/internal/usecase/search"
)

const boostPrefix = "boost."

// reservedParams are query keys that are not filters.
var reservedParams = map[string]struct{}{
	"sort":      {},
	"page_size": {},
	"cursor":    {},
	"keywords":  {},
	"epoch":     {},
	"presented": {},
}

// searchInputFromQuery splits the query string into control parameters, boosts and
// filter keys. Every key that is not reserved is passed on as a filter.
func searchInputFromQuery(q url.Values) (searchuc.Input, error) {
	var in searchuc.Input

	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, &in.PageSize); err != nil {
		return in, domain.NewValidation("page_size", "must be a single integer")
	}
	for name, dest := range map[string]*string{
		"sort":     &in.Sort,
		"cursor":   &in.Cursor,
		"keywords": &in.Keywords,
		"epoch":    &in.Epoch,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			return in, domain.NewValidation(name, "must be a single value")
		}
	}

	var presented []string
	if err := runtime.BindQueryParameter("form", true, false, "presented", q, &presented); err != nil {
		return in, domain.NewValidation("presented", "must be a list of ids")
	}
	for _, p := range presented {
		in.Presented = append(in.Presented, strings.Split(p, ",")...)
	}

	for key, values := range q {
		if _, ok := reservedParams[key]; ok {
			continue
		}
		if field, ok := strings.CutPrefix(key, boostPrefix); ok {
			w, err := parseBoost(key, values)
			if err != nil {
				return in, err
			}
			if in.Boosts == nil {
				in.Boosts = make(map[string]float64)
			}
			in.Boosts[field] = w
			continue
		}
		if in.Filters == nil {
			in.Filters = make(map[string][]string)
		}
		in.Filters[key] = values
	}
	return in, nil
}

func parseBoost(key string, values []string) (float64, error) {
	if len(values) != 1 {
		return 0, domain.NewValidation(key, "must be a single value")
	}
	w, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, domain.NewValidation(key, "invalid weight %q", values[0])
	}
	return w, nil
}
