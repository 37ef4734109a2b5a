package config

// DefaultConfigYAML contains the default application configuration.
// It is written by `splitmind config init --app`.
const DefaultConfigYAML = `# splitmind configuration
#
# Values not specified here use built-in defaults. Every key can be
# overridden with an environment variable, e.g. SPLITMIND_STORE_BACKEND.

log:
  level: info
  # auto, text or json
  format: auto

# Where the orchestrator settings are persisted.
store:
  # memory, file, sqlite or http
  backend: file
  path: .splitmind/orchestrator.yaml
  # url: http://localhost:8080
  # token: ""
  timeout: 15s
  create_defaults: true

server:
  addr: 127.0.0.1:8080
  # auth_token: ""
  redact_keys: false
  cors_origins: ["*"]
  metrics: true
  # log edits made to the settings file by other processes
  watch: true

# Optional provider/model catalog replacing the built-in one.
catalog:
  file: ""

editor:
  status_ttl: 3s
  # send If-Match on save so concurrent edits are rejected
  optimistic: false
`
