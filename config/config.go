// Package config loads and saves the recorder settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	fileName = "settings.yaml"
	appDir   = "aitranscriber"
)

var (
	Providers      = []string{"openai", "whisper", "groq", "gemini", "google"}
	ArchiveFormats = []string{"wav", "flac"}
)

var keyEnv = map[string]string{
	"openai":  "OPENAI_API_KEY",
	"whisper": "OPENAI_API_KEY",
	"groq":    "GROQ_API_KEY",
	"gemini":  "GEMINI_API_KEY",
	"google":  "GOOGLE_API_KEY",
}

type Settings struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key,omitempty"`
	Model               string `yaml:"model,omitempty"`
	TranslationEndpoint string `yaml:"translation_endpoint,omitempty"`
	SourceLanguage      string `yaml:"source_language"`
	TargetLanguage      string `yaml:"target_language"`
	Realtime            bool   `yaml:"realtime"`
	ChunkSeconds        int    `yaml:"chunk_seconds"`
	OutputDir           string `yaml:"output_dir"`
	ArchiveFormat       string `yaml:"archive_format"`
	// MicGain multiplies captured samples; 0 leaves them untouched.
	MicGain int `yaml:"mic_gain,omitempty"`
}

func Defaults() Settings {
	out := "AITranscriber"
	if home, err := os.UserHomeDir(); err == nil {
		out = filepath.Join(home, "Documents", "AITranscriber")
	}
	return Settings{
		Provider:       "openai",
		SourceLanguage: "en",
		TargetLanguage: "fa",
		Realtime:       true,
		ChunkSeconds:   5,
		OutputDir:      out,
		ArchiveFormat:  "wav",
	}
}

func (s Settings) Validate() error {
	if !slices.Contains(Providers, s.Provider) {
		return fmt.Errorf("unknown provider %q (use %s)", s.Provider, strings.Join(Providers, ", "))
	}
	if s.ChunkSeconds < 1 || s.ChunkSeconds > 60 {
		return fmt.Errorf("chunk_seconds must be between 1 and 60, got %d", s.ChunkSeconds)
	}
	if !slices.Contains(ArchiveFormats, s.ArchiveFormat) {
		return fmt.Errorf("unknown archive format %q (use wav or flac)", s.ArchiveFormat)
	}
	if s.MicGain < 0 || s.MicGain > 16 {
		return fmt.Errorf("mic_gain must be between 0 and 16, got %d", s.MicGain)
	}
	return nil
}

// KeyEnv is the environment variable consulted when no key is saved.
func KeyEnv(provider string) string {
	return keyEnv[provider]
}

// ResolveKey returns the saved key, falling back to the provider's
// environment variable.
func (s Settings) ResolveKey() string {
	if k := strings.TrimSpace(s.APIKey); k != "" {
		return k
	}
	if env := keyEnv[s.Provider]; env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

func (s Settings) RecordingsDir() string  { return filepath.Join(s.OutputDir, "Recordings") }
func (s Settings) TranscriptsDir() string { return filepath.Join(s.OutputDir, "Transcripts") }

// Set assigns one field by its yaml name from a string value.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "provider":
		s.Provider = value
	case "api_key":
		s.APIKey = value
	case "model":
		s.Model = value
	case "translation_endpoint":
		s.TranslationEndpoint = value
	case "source_language":
		s.SourceLanguage = value
	case "target_language":
		s.TargetLanguage = value
	case "realtime":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("realtime: %w", err)
		}
		s.Realtime = b
	case "chunk_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("chunk_seconds: %w", err)
		}
		s.ChunkSeconds = n
	case "output_dir":
		s.OutputDir = value
	case "archive_format":
		s.ArchiveFormat = strings.ToLower(value)
	case "mic_gain":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("mic_gain: %w", err)
		}
		s.MicGain = n
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// CorruptError reports a settings file that exists but cannot be parsed.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("settings file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func ResolvePath(flagPath string) (string, error) {
	// Priority 1: -config flag
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}

	// Priority 2: AITRANSCRIBER_CONFIG environment variable
	if env := os.Getenv("AITRANSCRIBER_CONFIG"); env != "" {
		return filepath.Abs(env)
	}

	// Priority 3: per-user config directory
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// LoadEnv loads .env from the working directory when present.
func LoadEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Store guards the settings shared by the recorder and the TUI.
type Store struct {
	path string

	mu       sync.Mutex
	settings Settings
}

func NewStore(path string) *Store {
	return &Store{path: path, settings: Defaults()}
}

func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file leaves the defaults in place.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.settings = Defaults()
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	settings := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return &CorruptError{Path: s.path, Err: err}
	}
	if err := settings.Validate(); err != nil {
		return &CorruptError{Path: s.path, Err: err}
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Reload re-reads the file and keeps the current settings on failure.
func (s *Store) Reload() (Settings, error) {
	prev := s.Get()
	if err := s.Load(); err != nil {
		s.mu.Lock()
		s.settings = prev
		s.mu.Unlock()
		return prev, err
	}
	return s.Get(), nil
}

// Reset removes the settings file and restores the defaults.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.settings = Defaults()
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Save() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.settings)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update applies fn to a copy and keeps it only if it validates.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// APIKey reads the key for the current provider. It is called for every
// chunk so a key added mid-session takes effect on the next chunk.
func (s *Store) APIKey() string {
	return s.Get().ResolveKey()
}
