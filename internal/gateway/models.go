package gateway

// Provider describes one conversational-agent backend exposed by the gateway
type Provider struct {
	Name       string `json:"name"`
	Available  bool   `json:"available"`
	Channel    string `json:"channel"`
	TotalCalls int    `json:"total_calls"`
	LastError  string `json:"last_error,omitempty"`
}

// providersResponse is the wire shape of the directory endpoint
type providersResponse struct {
	Providers []Provider `json:"providers"`
}

// Statistics is the gateway's cumulative usage summary
type Statistics struct {
	TotalCalls         int     `json:"total_calls"`
	OverallSuccessRate float64 `json:"overall_success_rate"`
}
