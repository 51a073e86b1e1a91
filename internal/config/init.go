package config

import (
	"os"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

const exampleConfig = `# pricewatch configuration
version: "1"

coordinator:
  # immediate: one remote call per change; debounced: wait for a quiet period
  mode: debounced
  delay: 300ms
  max_wait: 2s
  attempt_timeout: 10s
  # watch: periodically refetch the current configuration (0 disables)
  refresh_interval: 0s

pricing:
  transport: http            # http|nats
  url: ${PRICEWATCH_PRICING_URL}
  nats_url: nats://127.0.0.1:4222
  subject: pricing.calculate
  timeout: 5s
  retry:
    mode: exponential
    initial: 100ms
    max: 2s
    max_retries: 2

server:
  listen: ":8090"
  nats_url: ""               # set to also answer on NATS
  subject: pricing.calculate
  locale: en-US
  # simulated latency, makes out-of-order completions observable
  jitter_min: 0s
  jitter_max: 0s

status:
  listen: ""                 # e.g. 127.0.0.1:8091 to expose /state while watching

journal:
  enabled: true
  path: pricewatch.db

metrics:
  enabled: true

catalog:
  path: catalog.yaml
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
