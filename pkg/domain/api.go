package domain

// APIResult is the decoded outcome of a successful outbound call.
type APIResult struct {
	// Status is the HTTP status code (always 2xx here; failures surface as
	// errors from the gateway).
	Status int `json:"status"`

	// Data is the decoded JSON body: a map, a slice, or nil for empty bodies.
	Data any `json:"data,omitempty"`
}
