package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed default_bank.toml
var defaultBankTOML []byte

// Bank holds the question pool partitioned by category.
type Bank struct {
	Content []BankEntry `toml:"content"`
	Process []BankEntry `toml:"process"`
}

// BankEntry is a single question in the bank file.
type BankEntry struct {
	Text string `toml:"text"`
}

// DefaultBank returns the embedded question bank.
func DefaultBank() (Bank, error) {
	return parseBank(defaultBankTOML)
}

// LoadBank reads a question bank from a TOML file. An empty path selects the
// embedded default bank.
func LoadBank(path string) (Bank, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultBank()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Bank{}, fmt.Errorf("read question bank: %w", err)
	}
	return parseBank(data)
}

func parseBank(data []byte) (Bank, error) {
	var bank Bank
	if err := toml.Unmarshal(data, &bank); err != nil {
		return Bank{}, fmt.Errorf("parse question bank: %w", err)
	}
	bank.Content = trimEntries(bank.Content)
	bank.Process = trimEntries(bank.Process)
	if len(bank.Content) == 0 && len(bank.Process) == 0 {
		return Bank{}, errors.New("question bank is empty")
	}
	return bank, nil
}

func trimEntries(entries []BankEntry) []BankEntry {
	out := entries[:0]
	for _, entry := range entries {
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Text == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}
