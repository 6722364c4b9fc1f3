// Package popular holds the popular-searches contract.
package popular

// Search is a tracked search term with its occurrence count.
type Search struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Response is the popular-searches contract. Results is never null.
type Response struct {
	Success bool     `json:"success"`
	Results []Search `json:"results"`
}
