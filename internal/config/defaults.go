package config

// DefaultConfigYAML is written by `beequen config init`.
const DefaultConfigYAML = `# beequen configuration
# Every key may also be set with a BEEQUEN_ environment variable,
# e.g. BEEQUEN_SERVER_PORT=8080.

log:
  level: info       # debug, info, warn, error
  format: auto      # auto, text, json

server:
  host: 127.0.0.1
  port: 7360
  enable_cors: true

bigquery:
  location: ""            # empty lets BigQuery pick the job location
  table_list_budget: 50   # table listing calls per window
  table_list_window: 1s
  max_result_rows: 0      # 0 reads every row

history:
  enabled: true

watch:
  enabled: true
`
