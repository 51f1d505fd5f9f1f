package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTableID              = "main"
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultMessageBufferSize    = 256
	DefaultSessionBackend       = "file"
	DefaultSessionFilePath      = "session.json"
	DefaultSessionProfile       = "default"
	DefaultSaveDebounce         = 100 * time.Millisecond
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultNotificationDuration = 4 * time.Second
)

func (c *ClientConfig) applyDefaults() {
	if c.Server.TableID == "" {
		c.Server.TableID = DefaultTableID
	}

	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.MessageBufferSize == 0 {
		c.Connection.MessageBufferSize = DefaultMessageBufferSize
	}

	if c.Session.Backend == "" {
		c.Session.Backend = DefaultSessionBackend
	}
	if c.Session.FilePath == "" {
		c.Session.FilePath = DefaultSessionFilePath
	}
	if c.Session.Profile == "" {
		c.Session.Profile = DefaultSessionProfile
	}
	if c.Session.SaveDebounce == 0 {
		c.Session.SaveDebounce = DefaultSaveDebounce
	}
	if c.Session.Postgres.Port == 0 {
		c.Session.Postgres.Port = DefaultDBPort
	}
	if c.Session.Postgres.SSLMode == "" {
		c.Session.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.Session.Postgres.MaxConns == 0 {
		c.Session.Postgres.MaxConns = DefaultMaxConns
	}
	if c.Session.Postgres.MinConns == 0 {
		c.Session.Postgres.MinConns = DefaultMinConns
	}

	if c.Notifications.DefaultDuration == 0 {
		c.Notifications.DefaultDuration = DefaultNotificationDuration
	}
}
