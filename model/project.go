// model/project.go
package model

// Plan is the read model the prepare operation prices against. Projects and
// plans are managed outside this core.
type Plan struct {
	ID             int64  `json:"id"`
	ProjectID      int64  `json:"project_id"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Currency       string `json:"currency"`
}
