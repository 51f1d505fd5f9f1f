package config

import "time"

// ClientConfig is the root configuration for a table client.
type ClientConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Connection    ConnectionConfig    `yaml:"connection"`
	Session       SessionConfig       `yaml:"session"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig locates the game server.
type ServerConfig struct {
	WSURL   string `yaml:"ws_url"`   // e.g. ws://localhost:8000
	TableID string `yaml:"table_id"` // fixed table identifier
}

// ConnectionConfig holds socket lifecycle and reconnection settings.
type ConnectionConfig struct {
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	MessageBufferSize    int           `yaml:"message_buffer_size"`
}

// SessionConfig holds durable session record settings.
type SessionConfig struct {
	Backend      string        `yaml:"backend"` // "file" or "postgres"
	FilePath     string        `yaml:"file_path"`
	Profile      string        `yaml:"profile"` // one record per profile
	SaveDebounce time.Duration `yaml:"save_debounce"`
	Postgres     DBConfig      `yaml:"postgres"`
}

// DBConfig holds a PostgreSQL connection for the postgres backend.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// NotificationsConfig holds toast scheduler settings.
type NotificationsConfig struct {
	DefaultDuration time.Duration `yaml:"default_duration"`
}
