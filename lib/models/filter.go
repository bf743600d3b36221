package models

import "net/url"

// Filter narrows the notice board query. Every field is optional; empty
// fields contribute nothing to the serialized query.
type Filter struct {
	Category   string `json:"category"`
	Department string `json:"department"`
	Search     string `json:"search"`
}

func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("srCategoryId", f.Category)
	}
	if f.Department != "" {
		v.Set("srDeptCd", f.Department)
	}
	if f.Search != "" {
		v.Set("srSearchKey", "article_title")
		v.Set("srSearchVal", f.Search)
	}
	return v
}
