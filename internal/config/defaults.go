package config

const (
	defaultConfigPath            = "~/.config/lotsort/config.toml"
	defaultStateDir              = "~/.local/share/lotsort"
	defaultLogDir                = "~/.local/share/lotsort/logs"
	defaultAPIBind               = "127.0.0.1:7491"
	defaultGapThresholdMS        = 300000
	defaultIngestWorkers         = 8
	defaultMaxUploadMiB          = 256
	defaultLLMBaseURL            = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel              = "gpt-4o-mini"
	defaultLLMMaxTokens          = 300
	defaultLLMTimeoutSeconds     = 60
	defaultLLMRetryAttempts      = 1
	defaultLLMTitle              = "lotsort"
	defaultEnrichmentCallTimeout = 120
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

const defaultLotPrompt = "These photos all show the same piece of jewelry offered for sale as one lot. " +
	"Write a concise, accurate sales description covering the item type, materials, stones, " +
	"visible hallmarks or signatures, condition, and notable details. " +
	"Do not invent measurements or certifications that are not visible."

var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".heic", ".heif", ".webp", ".tif", ".tiff"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Clustering: Clustering{
			GapThresholdMS: defaultGapThresholdMS,
		},
		Ingest: Ingest{
			Workers:      defaultIngestWorkers,
			MaxUploadMiB: defaultMaxUploadMiB,
			Extensions:   append([]string(nil), defaultExtensions...),
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			MaxTokens:      defaultLLMMaxTokens,
			Prompt:         defaultLotPrompt,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Enrichment: Enrichment{
			CallTimeoutSeconds: defaultEnrichmentCallTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Confirmations:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
