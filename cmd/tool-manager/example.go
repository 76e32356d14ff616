package main

// exampleConfig is written by the example-config command. Kept in sync with
// configs/example.yaml.
const exampleConfig = `# Tool Runtime Manager example configuration.
# Validate with: tool-manager validate --config example.yaml

server:
  bind_address: "0.0.0.0:9190"
  metrics_path: "/metrics"
  health_path: "/health"
  api:
    enabled: true
    base_path: "/api/v1"
    max_requests: 50 # requests per second

tools:
  - name: "indexer"
    priority: 2
    max_cpu_percent: 25.0
    max_memory_mb: 512
    initial_state: "enabled"

  - name: "embedding-cache"
    priority: 7
    max_memory_mb: 2048
    initial_state: "enabled"

  - name: "code-search"
    priority: 6
    max_cpu_percent: 40.0
    dependencies: ["embedding-cache"]
    initial_state: "enabled"

  # Critical tools (priority >= 9) are never shed or throttled.
  - name: "session-broker"
    priority: 9
    initial_state: "enabled"

  # auto_scale: false tools keep their declared lifecycle forever.
  - name: "debug-inspector"
    priority: 4
    auto_scale: false
    initial_state: "disabled"

monitoring:
  sample_interval: 10s
  sample_timeout: 3s
  history_size: 60
  smoothing_samples: 3
  thresholds:
    medium: 50.0
    high: 70.0
    critical: 90.0

scaling:
  enabled: true
  tick_interval: 10s
  dwell_time: 30s

health:
  sweep_interval: 30s
  max_recovery_attempts: 3
  error_penalty_per_tool: 10
  error_penalty_cap: 30

storage:
  database_path: "/var/lib/tool-runtime-manager/events.db"
  retention: 168h # 7 days
  cleanup_interval: 1h

logging:
  level: "info"
  format: "json"

telemetry:
  enabled: false
  service_name: "tool-runtime-manager"
  environment: "production"
  exporter:
    type: "stdout"
  sampling:
    rate: 0.1
`
