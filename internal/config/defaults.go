package config

const (
	defaultRoot        = "."
	defaultPages       = "pages"
	defaultOutDir      = "dist/client"
	defaultNATSSubject = "prerender.files"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = defaultRoot
	}
	if cfg.Pages == "" {
		cfg.Pages = defaultPages
	}
	if cfg.OutDir == "" {
		cfg.OutDir = defaultOutDir
	}
	cfg.Output.Sink = sinkNormalizer.Normalize(string(cfg.Output.Sink))
	if cfg.Output.NATS.Subject == "" {
		cfg.Output.NATS.Subject = defaultNATSSubject
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

// Example is written by `prerender init`.
const Example = `# prerender configuration
root: .
pages: pages
out_dir: dist/client
prerender:
  partial: false
  no_extra_dir: false
  parallel: true
client_routing: false
page_context_init: {}
output:
  sink: fs
  nats:
    url: ${NATS_URL}
    subject: prerender.files
report: ""
history: ""
metrics:
  textfile: ""
logging:
  level: info
  format: text
`
