package config

// Service config file names.
const (
	ServiceProviders = "providers"
	ServiceRealtime  = "realtime"
	ServicePackager  = "packager"
)

// ProvidersConfig holds credentials and models for the external AI
// services behind the build pipeline.
type ProvidersConfig struct {
	Groq struct {
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model,omitempty"`
		Language string `yaml:"language,omitempty"`
	} `yaml:"groq"`

	OpenAI struct {
		APIKey   string `yaml:"api_key"`
		Language string `yaml:"language,omitempty"`
	} `yaml:"openai"`

	Gemini struct {
		APIKey    string `yaml:"api_key"`
		CodeModel string `yaml:"code_model,omitempty"`
		IconModel string `yaml:"icon_model,omitempty"`
	} `yaml:"gemini"`
}

// RealtimeConfig holds the realtime voice session endpoints.
type RealtimeConfig struct {
	// BrokerURL issues ephemeral credentials. Required.
	BrokerURL string `yaml:"broker_url"`

	// AgentURL overrides the SDP exchange endpoint.
	AgentURL string `yaml:"agent_url,omitempty"`

	// Model and Voice are passed to the broker.
	Model string `yaml:"model,omitempty"`
	Voice string `yaml:"voice,omitempty"`
}

// PackagerConfig holds the external build service endpoint. An empty
// endpoint simulates packaging locally.
type PackagerConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}
