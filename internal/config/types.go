package config

import "time"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type GRPCConfig struct {
	EnableReflection      bool `mapstructure:"enable_reflection"`
	MaxReceiveMessageSize int  `mapstructure:"max_receive_message_size"`
	MaxSendMessageSize    int  `mapstructure:"max_send_message_size"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	TokenExpiration  time.Duration `mapstructure:"token_expiration"`
	ClientSecretHash string        `mapstructure:"client_secret_hash"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type MarkersConfig struct {
	Store string `mapstructure:"store"` // "memory", "sqlite" or "postgres"
	Path  string `mapstructure:"path"`  // sqlite database file
}

// BackendEndpoint is a statically configured compile backend.
type BackendEndpoint struct {
	Address string `mapstructure:"address"`
	Version string `mapstructure:"version"`
}

type DiscoveryConfig struct {
	Kind          string `mapstructure:"kind"` // "static" or "kubernetes"
	Namespace     string `mapstructure:"namespace"`
	LabelSelector string `mapstructure:"label_selector"`
	PortName      string `mapstructure:"port_name"`
	Kubeconfig    string `mapstructure:"kubeconfig"`
}

type DockerConfig struct {
	Image    string `mapstructure:"image"`
	Version  string `mapstructure:"version"`
	Platform string `mapstructure:"platform"`
}

type BackendConfig struct {
	Kind      string            `mapstructure:"kind"` // "grpc" or "docker"
	Endpoints []BackendEndpoint `mapstructure:"endpoints"`
	Discovery DiscoveryConfig   `mapstructure:"discovery"`
	Docker    DockerConfig      `mapstructure:"docker"`
	// Subject is the JWT subject presented to remote backends.
	Subject string `mapstructure:"subject"`
}

type BuildConfig struct {
	// Projects lists the roots the daemon accepts build requests for. Empty allows any.
	Projects []string `mapstructure:"projects"`
}

// EventsConfig enables pass announcements on NATS when NATSURL is set.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Markers  MarkersConfig  `mapstructure:"markers"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Build    BuildConfig    `mapstructure:"build"`
	Events   EventsConfig   `mapstructure:"events"`
}
