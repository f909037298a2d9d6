package ble

import (
	"fmt"
	"time"

	"github.com/ggoodman/mcp-ble-go/link"
	"github.com/ggoodman/mcp-ble-go/mcp"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
	"github.com/joeshaw/envdecode"
)

// Config holds the link and server settings of a Handler. Defaults can be
// loaded via envdecode.
type Config struct {
	// DeviceName advertised by the peripheral. ENV: MCP_BLE_DEVICE_NAME
	DeviceName string `env:"MCP_BLE_DEVICE_NAME,default=MCP_Server_BLE"`
	// MTU assumed until the carrier reports a negotiated one. ENV: MCP_BLE_MTU
	MTU uint16 `env:"MCP_BLE_MTU,default=23"`
	// TxGap is the pause between frames of one message. ENV: MCP_BLE_TX_GAP
	TxGap time.Duration `env:"MCP_BLE_TX_GAP,default=1ms"`
	// SendRetries per packet after the first attempt. ENV: MCP_BLE_SEND_RETRIES
	SendRetries int `env:"MCP_BLE_SEND_RETRIES,default=3"`
	// RetryDelay between attempts. ENV: MCP_BLE_RETRY_DELAY
	RetryDelay time.Duration `env:"MCP_BLE_RETRY_DELAY,default=1ms"`
	// QueueCapacity of the ingress queue. ENV: MCP_BLE_QUEUE_CAPACITY
	QueueCapacity int `env:"MCP_BLE_QUEUE_CAPACITY,default=4"`
	// ReassemblyTimeout discards a stalled inbound message; zero disables it.
	// ENV: MCP_BLE_REASSEMBLY_TIMEOUT
	ReassemblyTimeout time.Duration `env:"MCP_BLE_REASSEMBLY_TIMEOUT,default=0s"`

	// ServerName reported by initialize. ENV: MCP_SERVER_NAME
	ServerName string `env:"MCP_SERVER_NAME,default=ESP32-MCP-BLE"`
	// ServerVersion reported by initialize. ENV: MCP_SERVER_VERSION
	ServerVersion string `env:"MCP_SERVER_VERSION,default=1.0.0"`
	// Instructions returned by initialize when set. ENV: MCP_SERVER_INSTRUCTIONS
	Instructions string `env:"MCP_SERVER_INSTRUCTIONS"`
	// ValidateArguments checks tools/call arguments against input schemas.
	// ENV: MCP_SERVER_VALIDATE_ARGUMENTS
	ValidateArguments bool `env:"MCP_SERVER_VALIDATE_ARGUMENTS,default=false"`
}

// DefaultConfig mirrors the envdecode defaults.
func DefaultConfig() Config {
	return Config{
		DeviceName:    DefaultDeviceName,
		MTU:           link.DefaultMTU,
		TxGap:         time.Millisecond,
		SendRetries:   3,
		RetryDelay:    time.Millisecond,
		QueueCapacity: 4,
		ServerName:    mcpservice.DefaultServerName,
		ServerVersion: mcpservice.DefaultServerVersion,
	}
}

// ConfigFromEnv builds a Config using envdecode.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("ble config: %w", err)
	}
	return cfg, nil
}

// LinkOptions translates the link settings into link options.
func (c Config) LinkOptions() []link.Option {
	return []link.Option{
		link.WithMTU(c.MTU),
		link.WithTxGap(c.TxGap),
		link.WithSendRetry(c.SendRetries, c.RetryDelay),
		link.WithReassemblyTimeout(c.ReassemblyTimeout),
	}
}

// ServerOptions translates the server identity into mcpservice options.
// Tools are registered separately.
func (c Config) ServerOptions() []mcpservice.ServerOption {
	opts := []mcpservice.ServerOption{
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: c.ServerName, Version: c.ServerVersion}),
	}
	if c.Instructions != "" {
		opts = append(opts, mcpservice.WithInstructions(c.Instructions))
	}
	if c.ValidateArguments {
		opts = append(opts, mcpservice.WithArgumentValidation())
	}
	return opts
}

// Options translates the handler settings into handler options.
func (c Config) Options() []Option {
	return []Option{
		WithDeviceName(c.DeviceName),
		WithQueueCapacity(c.QueueCapacity),
		WithLinkOptions(c.LinkOptions()...),
	}
}
