package types

type ApiType string

// All supported APIs speak the OpenAI chat completion protocol and only
// differ in base URL and credentials.
const (
	ApiTypeOpenAI    ApiType = "openai"
	ApiTypeAnyScale  ApiType = "anyscale"
	ApiTypeFireworks ApiType = "fireworks"
	ApiTypeOllama    ApiType = "ollama"
)

// DefaultBaseURLs maps each api type to its public endpoint.
var DefaultBaseURLs = map[ApiType]string{
	ApiTypeOpenAI:    "https://api.openai.com/v1",
	ApiTypeAnyScale:  "https://api.endpoints.anyscale.com/v1",
	ApiTypeFireworks: "https://api.fireworks.ai/inference/v1",
	ApiTypeOllama:    "http://localhost:11434/v1",
}
