package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateScorer(); err != nil {
		return err
	}
	if err := c.validateGrading(); err != nil {
		return err
	}
	if err := c.validateRecovery(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIntake() error {
	if err := ensurePositiveMap(map[string]int{
		"intake.max_essay_chars":   c.Intake.MaxEssayChars,
		"intake.content_questions": c.Intake.ContentQuestions,
		"intake.process_questions": c.Intake.ProcessQuestions,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVoice() error {
	if strings.TrimSpace(c.Voice.BaseURL) == "" {
		return errors.New("voice.base_url must be set")
	}
	if c.Voice.TimeoutSeconds <= 0 {
		return errors.New("voice.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScorer() error {
	if strings.TrimSpace(c.Scorer.BaseURL) == "" {
		return errors.New("scorer.base_url must be set")
	}
	if strings.TrimSpace(c.Scorer.Model) == "" {
		return errors.New("scorer.model must be set")
	}
	if c.Scorer.TimeoutSeconds <= 0 {
		return errors.New("scorer.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGrading() error {
	if c.Grading.MinCallSeconds <= 0 {
		return errors.New("grading.min_call_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRecovery() error {
	return ensurePositiveMap(map[string]int{
		"recovery.grace_period_seconds":   c.Recovery.GracePeriodSeconds,
		"recovery.sweep_interval_seconds": c.Recovery.SweepIntervalSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
