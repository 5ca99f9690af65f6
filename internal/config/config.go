// Package config loads and validates the YAML configuration file describing
// per-microphone behavior, provider endpoints, and key bindings.
package config

import "time"

// MicrophoneConfig is one device's entry in the config file.
type MicrophoneConfig struct {
	Enabled                    bool    `yaml:"enabled"`
	SamplesUntilIdle           uint32  `yaml:"samples_until_idle"`
	ActivityThresholdAmplitude float32 `yaml:"activity_threshold_amplitude"`
}

// HueConfig configures the Hue bridge REST client.
type HueConfig struct {
	BridgeIP string `yaml:"bridge_ip"`
	Username string `yaml:"username"`
}

// LLMConfig configures the lights interpreter's model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// DiscordConfig configures the outbound Discord notifier consumer.
type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// KeyBindings maps logical actions to a single key each.
type KeyBindings struct {
	Quit                     string `yaml:"quit"`
	Help                     string `yaml:"help"`
	MicToggleDisabled        string `yaml:"mic_toggle_disabled"`
	MicCycleMode             string `yaml:"mic_cycle_mode"`
	CallbackToggleWrite      string `yaml:"callback_toggle_write"`
	CallbackToggleTypewriter string `yaml:"callback_toggle_typewriter"`
	OpenConfig               string `yaml:"open_config"`
	OpenLogs                 string `yaml:"open_logs"`
}

// Config is the full, validated application configuration.
type Config struct {
	TranscriptionEndpoint string                      `yaml:"transcription_endpoint"`
	ResultsDir            string                      `yaml:"results_dir"`
	Microphones           map[string]MicrophoneConfig `yaml:"microphones"`
	Keys                  KeyBindings                 `yaml:"keys"`
	Hue                   HueConfig                   `yaml:"hue"`
	LLM                   LLMConfig                   `yaml:"llm"`
	Discord               DiscordConfig               `yaml:"discord"`
}

// Default returns the configuration used when no file exists yet, mirroring
// the original implementation's built-in defaults.
func Default() Config {
	return Config{
		TranscriptionEndpoint: "https://localhost:8443/transcribe",
		ResultsDir:            "transcripts",
		Microphones:           map[string]MicrophoneConfig{},
		Keys: KeyBindings{
			Quit:                     "q",
			Help:                     "?",
			MicToggleDisabled:        "d",
			MicCycleMode:             "m",
			CallbackToggleWrite:      "w",
			CallbackToggleTypewriter: "t",
			OpenConfig:               "c",
			OpenLogs:                 "l",
		},
		Hue: HueConfig{BridgeIP: "", Username: ""},
		LLM: LLMConfig{Provider: "ollama", Model: "llama3.2", BaseURL: "http://localhost:11434"},
	}
}

// ActivityThreshold returns the configured threshold for a microphone entry,
// or the package default if unset.
func (m MicrophoneConfig) ActivityThreshold() float64 {
	if m.ActivityThresholdAmplitude <= 0 {
		return 0.01
	}
	return float64(m.ActivityThresholdAmplitude)
}

// IdleHangTime converts SamplesUntilIdle at the given sample rate into a
// wall-clock duration. A zero value falls back to the 1-second default.
func (m MicrophoneConfig) IdleHangTime(sampleRate int) time.Duration {
	if m.SamplesUntilIdle == 0 || sampleRate <= 0 {
		return time.Second
	}
	return time.Duration(float64(m.SamplesUntilIdle) / float64(sampleRate) * float64(time.Second))
}
