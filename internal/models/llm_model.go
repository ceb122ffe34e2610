package models

// LLMModel is one entry of the completion model catalog.
type LLMModel struct {
	Key          string `json:"key"`
	DisplayName  string `json:"displayName"`
	APIName      string `json:"apiName"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	Default      bool   `json:"default,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// LLMModelGroup groups models by their provider.
type LLMModelGroup struct {
	ProviderID   string     `json:"providerId"`
	ProviderName string     `json:"providerName"`
	Models       []LLMModel `json:"models"`
}
