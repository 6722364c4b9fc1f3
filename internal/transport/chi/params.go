package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// SearchParams are the query parameters of GET /search.
type SearchParams struct {
	Q        string   `form:"q" json:"q"`
	Page     *int     `form:"page,omitempty" json:"page,omitempty"`
	PageSize *int     `form:"page_size,omitempty" json:"page_size,omitempty"`
	Category *string  `form:"category,omitempty" json:"category,omitempty"`
	Store    *string  `form:"store,omitempty" json:"store,omitempty"`
	MinPrice *float64 `form:"min_price,omitempty" json:"min_price,omitempty"`
	MaxPrice *float64 `form:"max_price,omitempty" json:"max_price,omitempty"`
}

// PopularSearchesParams are the query parameters of GET /popular-searches.
type PopularSearchesParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// RecommendationsParams are the query parameters of GET /recommendations/{user_id}.
type RecommendationsParams struct {
	History *[]string `form:"history,omitempty" json:"history,omitempty"`
}

// RecommendationsRequest is the body of POST /recommendations.
type RecommendationsRequest struct {
	UserID  string   `json:"user_id"`
	History []string `json:"history"`
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// RequiredParamError reports a missing required parameter.
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("query parameter %s is required", e.ParamName)
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var params SearchParams
	q := r.URL.Query()

	if !q.Has("q") {
		return params, &RequiredParamError{ParamName: "q"}
	}
	if err := runtime.BindQueryParameter("form", true, true, "q", q, &params.Q); err != nil {
		return params, &InvalidParamFormatError{ParamName: "q", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &params.Page); err != nil {
		return params, &InvalidParamFormatError{ParamName: "page", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, &params.PageSize); err != nil {
		return params, &InvalidParamFormatError{ParamName: "page_size", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "category", q, &params.Category); err != nil {
		return params, &InvalidParamFormatError{ParamName: "category", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "store", q, &params.Store); err != nil {
		return params, &InvalidParamFormatError{ParamName: "store", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_price", q, &params.MinPrice); err != nil {
		return params, &InvalidParamFormatError{ParamName: "min_price", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "max_price", q, &params.MaxPrice); err != nil {
		return params, &InvalidParamFormatError{ParamName: "max_price", Err: err}
	}
	return params, nil
}

func bindPopularSearchesParams(r *http.Request) (PopularSearchesParams, error) {
	var params PopularSearchesParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		return params, &InvalidParamFormatError{ParamName: "limit", Err: err}
	}
	return params, nil
}

func bindUserID(r *http.Request) (string, error) {
	var userID string
	err := runtime.BindStyledParameterWithOptions("simple", "user_id", chi.URLParam(r, "user_id"), &userID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", &InvalidParamFormatError{ParamName: "user_id", Err: err}
	}
	return userID, nil
}

func bindRecommendationsParams(r *http.Request) (RecommendationsParams, error) {
	var params RecommendationsParams
	if err := runtime.BindQueryParameter("form", false, false, "history", r.URL.Query(), &params.History); err != nil {
		return params, &InvalidParamFormatError{ParamName: "history", Err: err}
	}
	return params, nil
}
