// Package settings reads and writes the user preferences file.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// Settings holds the user preferences persisted between runs.
type Settings struct {
	DefaultCity string `json:"defaultCity"`
	DarkTheme   bool   `json:"isDarkTheme"`
	Autorun     bool   `json:"isAutorun"`
}

// Defaults returns the built-in settings used when the file is missing
// or unreadable.
func Defaults() Settings {
	return Settings{
		DefaultCity: "London",
		DarkTheme:   true,
		Autorun:     false,
	}
}

// Load reads settings from path, falling back to defaults on any read
// or parse failure.
func Load(path string) Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("settings: using defaults: %v", err)
		return Defaults()
	}
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("settings: unreadable %s, using defaults: %v", path, err)
		return Defaults()
	}
	return s
}

// Save writes settings to path.
func Save(path string, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
