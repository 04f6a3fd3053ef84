// Package config handles configuration loading for relay-bot.
//
// # Overview
//
// Configuration comes from an optional YAML or TOML file, then from process
// environment variables (a ./.env file is loaded first if present). The
// environment wins over the file, so a container can be configured from the
// environment alone.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. --config flag
//  2. Path from RELAY_BOT_CONFIG environment variable
//  3. ~/.config/relay-bot/config.yaml, if it exists
//
// Files ending in .toml are parsed as TOML; everything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	telegram:
//	  token: "${TELEGRAM_BOT_TOKEN}"
//
// # Environment Overrides
//
//	TELEGRAM_BOT_TOKEN   telegram.token
//	QWEN_APP_ID          llm.app_id
//	QWEN_API_KEY         llm.api_key
//	LLM_PROVIDER         llm.provider (dashscope, openai, anthropic, gemini)
//	LLM_MODEL            llm.model
//	POSTGRES_HOST        database.host
//	POSTGRES_PORT        database.port
//	POSTGRES_USER        database.user
//	POSTGRES_PASSWORD    database.password
//	POSTGRES_DB          database.name
//	DATABASE_DRIVER      database.driver (postgres, mysql, sqlite)
//	ADMIN_IDS            bot.admin_ids, comma separated
//
// The POSTGRES_* names are kept for compatibility and also address MySQL.
//
// # Configuration Sections
//
//	telegram:
//	  token: "${TELEGRAM_BOT_TOKEN}"
//	  poll_timeout: "30s"
//	  drop_pending: false
//	  api_server: ""          # self-hosted Bot API server
//
//	llm:
//	  provider: "dashscope"
//	  app_id: "${QWEN_APP_ID}"
//	  api_key: "${QWEN_API_KEY}"
//	  base_url: ""            # provider default when empty
//	  system_prompt: ""
//	  timeout: ""             # no limit when empty
//
//	database:
//	  driver: "postgres"
//	  host: "localhost"
//	  port: 5432
//	  user: "relay"
//	  password: "${POSTGRES_PASSWORD}"
//	  name: "relay"
//	  params: {sslmode: disable}
//	  max_idle_conns: 0       # a fresh connection per operation
//
//	bot:
//	  admin_ids: [123456789]
//	  invite_length: 8
//	  max_turns: 50           # 0 keeps every turn
//	  max_chars: 0
//	  group_mention_required: true
//
//	server:
//	  http_addr: ""           # health endpoint disabled when empty
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() fails when the bot token, model credentials or database connection
// parameters are missing, and on malformed durations.
package config
