package config

const (
	defaultDataDir              = "~/.local/share/viva/data"
	defaultLogDir               = "~/.local/share/viva/logs"
	defaultTemplateDir          = "~/.config/viva/templates"
	defaultAPIBind              = "127.0.0.1:8417"
	defaultMaxEssayChars        = 20000
	defaultContentQuestions     = 2
	defaultProcessQuestions     = 2
	defaultVoiceBaseURL         = "https://api.elevenlabs.io"
	defaultVoiceTimeoutSeconds  = 30
	defaultScorerBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultScorerModel          = "google/gemini-3-flash-preview"
	defaultScorerTimeoutSeconds = 60
	defaultMinCallSeconds       = 60
	defaultGracePeriodSeconds   = 120
	defaultSweepIntervalSeconds = 300
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			TemplateDir: defaultTemplateDir,
			APIBind:     defaultAPIBind,
		},
		Intake: Intake{
			MaxEssayChars:    defaultMaxEssayChars,
			ContentQuestions: defaultContentQuestions,
			ProcessQuestions: defaultProcessQuestions,
		},
		Voice: Voice{
			BaseURL:        defaultVoiceBaseURL,
			TimeoutSeconds: defaultVoiceTimeoutSeconds,
		},
		Scorer: Scorer{
			BaseURL:        defaultScorerBaseURL,
			Model:          defaultScorerModel,
			TimeoutSeconds: defaultScorerTimeoutSeconds,
		},
		Grading: Grading{
			MinCallSeconds: defaultMinCallSeconds,
		},
		Recovery: Recovery{
			GracePeriodSeconds:   defaultGracePeriodSeconds,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
