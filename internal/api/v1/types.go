// internal/api/v1/types.go
package v1

// submitRequest is the body for POST /queue.
type submitRequest struct {
	Title    string   `json:"title"`
	ItemURLs []string `json:"item_urls"`
	Language string   `json:"language"`
	Provider string   `json:"provider,omitempty"`
}

// submitResponse is the response for POST /queue.
type submitResponse struct {
	JobIDs []int64 `json:"job_ids"`
}

// cancelResponse is the response for POST /queue/{id}/cancel.
type cancelResponse struct {
	Success bool `json:"success"`
}

// concurrencyRequest is the body for PUT /queue/concurrency.
type concurrencyRequest struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// concurrencyResponse echoes the applied limit.
type concurrencyResponse struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Queued        int    `json:"queued"`
	Running       int    `json:"running"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// providersResponse lists the provider race order.
type providersResponse struct {
	Order []string `json:"order"`
}
