package provider

// NewOpenRouterProvider returns an OpenAI-compatible provider pointed at
// OpenRouter. Model names keep their vendor prefix for API calls.
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = "meta-llama/llama-3.2-90b-instruct"
	}
	return newOpenAICompatible(ProviderTypeOpenRouter, baseURL, apiKey, model)
}
