// Package config handles configuration loading for chatrelay.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. The webhook section can also be supplied entirely through
// environment variables, so a bare .env-style deployment works without
// any config file.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	webhook:
//	  password: "${WEBHOOK_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Webhook Fallbacks
//
// Empty webhook fields fall back to environment variables. Both the
// current and the legacy names are honored, current names winning:
//
//	url:      WEBHOOK_URL      or N8N_WEBHOOK_URL
//	username: WEBHOOK_USERNAME or N8N_USERNAME
//	password: WEBHOOK_PASSWORD or N8N_PASSWORD
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "localhost:8000"
//
// Webhook target:
//
//	webhook:
//	  url: "https://example.app.n8n.cloud/webhook/<id>/chat"
//	  username: "${WEBHOOK_USERNAME}"
//	  password: "${WEBHOOK_PASSWORD}"
//	  timeout: "60s"
//
// Database:
//
//	database:
//	  path: "chatrelay.db"
//
// API auth (optional; endpoints are open when unset):
//
//	auth:
//	  api_token_secret: "${CHATRELAY_TOKEN_SECRET}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() requires the three webhook values; everything else defaults.
package config
