package brands

type Brand struct {
	ID   int64  `json:"brand_id"`
	Name string `json:"name"`
}
