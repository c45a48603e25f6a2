package realtime

import (
	"log/slog"
	"net/http"

	"github.com/pion/webrtc/v3"

	"github.com/vobuild/vobuild/pkg/capture"
)

const (
	// DefaultAgentURL is the default HTTP endpoint for SDP exchange.
	DefaultAgentURL = "https://api.openai.com/v1/realtime"

	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model requested from the broker.
	DefaultModel = "gpt-4o-realtime-preview"

	// DefaultVoice is the agent voice requested from the broker.
	DefaultVoice = "alloy"
)

// Client negotiates realtime voice sessions.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	brokerURL  string
	agentURL   string
	wsURL      string
	model      string
	voice      string
	iceServers []webrtc.ICEServer
	audio      capture.Context
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a realtime client. The broker URL is required; the
// broker issues the ephemeral credential used for signaling.
func NewClient(brokerURL string, opts ...Option) *Client {
	cfg := &clientConfig{
		brokerURL: brokerURL,
		agentURL:  DefaultAgentURL,
		wsURL:     DefaultWebSocketURL,
		model:     DefaultModel,
		voice:     DefaultVoice,
		iceServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithAgentURL sets the HTTP endpoint for SDP exchange.
func WithAgentURL(url string) Option {
	return func(c *clientConfig) {
		c.agentURL = url
	}
}

// WithWebSocketURL sets the WebSocket endpoint.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithModel sets the realtime model.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithVoice sets the agent voice.
func WithVoice(voice string) Option {
	return func(c *clientConfig) {
		c.voice = voice
	}
}

// WithAudio sets the audio context used to open the microphone and the
// speaker. Without one, Connect negotiates a control-only session with no
// audio devices.
func WithAudio(audio capture.Context) Option {
	return func(c *clientConfig) {
		c.audio = audio
	}
}

// WithICEServers replaces the default ICE server list. An empty slice
// disables STUN entirely.
func WithICEServers(servers []webrtc.ICEServer) Option {
	return func(c *clientConfig) {
		c.iceServers = servers
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
