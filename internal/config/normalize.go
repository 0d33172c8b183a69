package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	// Secrets may live in a local .env during development; load it before the
	// environment overlays below so plain env vars still win.
	_ = godotenv.Load()

	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeVoice()
	c.normalizeScorer()
	c.normalizeGrading()
	c.normalizeRecovery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.TemplateDir, err = expandPath(c.Paths.TemplateDir); err != nil {
		return fmt.Errorf("paths.template_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.QuestionBank) != "" {
		if c.Paths.QuestionBank, err = expandPath(c.Paths.QuestionBank); err != nil {
			return fmt.Errorf("paths.question_bank: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("VIVA_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeIntake() {
	if c.Intake.MaxEssayChars <= 0 {
		c.Intake.MaxEssayChars = defaultMaxEssayChars
	}
	if c.Intake.ContentQuestions <= 0 {
		c.Intake.ContentQuestions = defaultContentQuestions
	}
	if c.Intake.ProcessQuestions <= 0 {
		c.Intake.ProcessQuestions = defaultProcessQuestions
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.BaseURL = strings.TrimSpace(c.Voice.BaseURL)
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = defaultVoiceBaseURL
	}
	c.Voice.APIKey = strings.TrimSpace(c.Voice.APIKey)
	if c.Voice.APIKey == "" {
		if value, ok := os.LookupEnv("VOICE_API_KEY"); ok {
			c.Voice.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Voice.APIKey = strings.TrimSpace(value)
		}
	}
	c.Voice.AgentID = strings.TrimSpace(c.Voice.AgentID)
	c.Voice.WebhookSecret = strings.TrimSpace(c.Voice.WebhookSecret)
	if c.Voice.WebhookSecret == "" {
		if value, ok := os.LookupEnv("VOICE_WEBHOOK_SECRET"); ok {
			c.Voice.WebhookSecret = strings.TrimSpace(value)
		}
	}
	if c.Voice.TimeoutSeconds <= 0 {
		c.Voice.TimeoutSeconds = defaultVoiceTimeoutSeconds
	}
}

func (c *Config) normalizeScorer() {
	c.Scorer.BaseURL = strings.TrimSpace(c.Scorer.BaseURL)
	if c.Scorer.BaseURL == "" {
		c.Scorer.BaseURL = defaultScorerBaseURL
	}
	c.Scorer.Model = strings.TrimSpace(c.Scorer.Model)
	if c.Scorer.Model == "" {
		c.Scorer.Model = defaultScorerModel
	}
	c.Scorer.APIKey = strings.TrimSpace(c.Scorer.APIKey)
	if c.Scorer.APIKey == "" {
		if value, ok := os.LookupEnv("SCORER_API_KEY"); ok {
			c.Scorer.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Scorer.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Scorer.TimeoutSeconds <= 0 {
		c.Scorer.TimeoutSeconds = defaultScorerTimeoutSeconds
	}
}

func (c *Config) normalizeGrading() {
	if c.Grading.MinCallSeconds <= 0 {
		c.Grading.MinCallSeconds = defaultMinCallSeconds
	}
}

func (c *Config) normalizeRecovery() {
	if c.Recovery.GracePeriodSeconds <= 0 {
		c.Recovery.GracePeriodSeconds = defaultGracePeriodSeconds
	}
	if c.Recovery.SweepIntervalSeconds <= 0 {
		c.Recovery.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
