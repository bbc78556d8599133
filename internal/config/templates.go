package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# StockSignal Configuration

[analysis]
# Default timeframe: daily, weekly, monthly
timeframe = "daily"
# Minutes a finished analysis is served from cache (0 disables)
cache_minutes = 120
# Directory for rendered charts
chart_dir = "charts"
# Candles drawn on the chart
chart_bars = 120
# USD to IDR conversion for dual-listed fundamentals
usd_idr_rate = 16200.0
# ATR risk profile: conservative or aggressive
risk_method = "conservative"
# Bars used for Fibonacci retracement
fib_lookback = 120

[llm]
model = "gemini-1.5-flash"
base_url = "https://generativelanguage.googleapis.com/v1beta/openai/"
timeout = "60s"
temperature = 0.4
max_tokens = 2048

[news]
max_items = 5
timeout = "15s"
retries = 2

[whatsapp]
service_url = "http://localhost:3000"
# Default recipient, e.g. 628123456789 or a group id ending in @g.us
default_phone = ""
timeout = "60s"
delete_chart_after_send = true

[cache]
# sqlite or redis
backend = "sqlite"
redis_addr = "localhost:6379"
redis_db = 0
redis_prefix = "stocksignal:report:"

[server]
host = "127.0.0.1"
port = 8080

[logging]
level = "info"
file = true

[notifications.webhook]
enabled = false
url = ""
`

const credentialsTemplate = `# StockSignal Credentials
# WARNING: Keep this file secure! Do not commit to version control.
# Values from the environment or a .env file take precedence.

[google]
api_key = ""

[serper]
api_key = ""

[goapi]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
