package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Luksuz/anime-content-creator/internal/assets"
	"github.com/Luksuz/anime-content-creator/internal/fsutil"
)

const CurrentConfigVersion = 1

// struct pour les paramètres de configuration
type Config struct {
	// Chemins
	OutputDir string `yaml:"output_dir"`

	// Mode automatique
	AutoMode bool `yaml:"auto_mode"`

	// Capture des panels
	Capture struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"capture"`

	// Analyse d'images
	Vision struct {
		BaseURL string `yaml:"base_url"`
		Prompt  string `yaml:"prompt"`
	} `yaml:"vision"`

	// Synthèse vocale
	TTS struct {
		BaseURL       string `yaml:"base_url"`
		VoiceID       string `yaml:"voice_id"`
		ModelID       string `yaml:"model_id"`
		Concurrency   int    `yaml:"concurrency"`
		MaxRetries    int    `yaml:"max_retries"`
		MaxAttempts   int    `yaml:"max_attempts"`
		BaseDelaySecs int    `yaml:"base_delay_seconds"`
		MaxDelaySecs  int    `yaml:"max_delay_seconds"`
		MaxChunkChars int    `yaml:"max_chunk_chars"`
	} `yaml:"tts"`

	// Transcription (sous-titres)
	Transcription struct {
		Enabled          bool   `yaml:"enabled"`
		BaseURL          string `yaml:"base_url"`
		PollIntervalSecs int    `yaml:"poll_interval_seconds"`
		MaxPolls         int    `yaml:"max_polls"`
	} `yaml:"transcription"`

	// Rendu vidéo
	Render struct {
		BaseURL          string `yaml:"base_url"`
		Format           string `yaml:"format"`
		Resolution       string `yaml:"resolution"`
		PollIntervalSecs int    `yaml:"poll_interval_seconds"`
		MaxPolls         int    `yaml:"max_polls"`
	} `yaml:"render"`

	// Stockage d'objets
	Storage struct {
		Endpoint string `yaml:"endpoint"`
		Bucket   string `yaml:"bucket"`
		UseSSL   bool   `yaml:"use_ssl"`
	} `yaml:"storage"`

	// Pipeline audio
	Pipeline struct {
		FallbackDurationSecs float64 `yaml:"fallback_duration_seconds"`
		RequireComplete      bool    `yaml:"require_complete"`
	} `yaml:"pipeline"`

	// ffmpeg/ffprobe
	FFmpeg struct {
		Name string `yaml:"name"`
		Path string `yaml:"path"`

		// ResolvedPath contient le chemin effectif vers l'exécutable
		ResolvedFFmpeg  string `yaml:"-"`
		ResolvedFFprobe string `yaml:"-"`
	} `yaml:"ffmpeg"`

	ConfigVersion int `yaml:"config_version"`

	configFilePath string
}

// Configuration par défaut (fallback si l'asset embarqué est manquant)
func defaultConfig() *Config {
	c := &Config{}

	// Chemins
	c.OutputDir = "."

	// Mode automatique
	c.AutoMode = false

	// Capture
	c.Capture.BaseURL = "http://localhost:8081"

	// Vision
	c.Vision.BaseURL = "http://localhost:8082"
	c.Vision.Prompt = "Décris chaque panel en une narration courte et vivante."

	// TTS
	c.TTS.BaseURL = "https://api.elevenlabs.io"
	c.TTS.VoiceID = ""
	c.TTS.ModelID = "eleven_multilingual_v2"
	c.TTS.Concurrency = 3
	c.TTS.MaxRetries = 5
	c.TTS.MaxAttempts = 10
	c.TTS.BaseDelaySecs = 2
	c.TTS.MaxDelaySecs = 30
	c.TTS.MaxChunkChars = 950

	// Transcription
	c.Transcription.Enabled = true
	c.Transcription.BaseURL = "http://localhost:8083"
	c.Transcription.PollIntervalSecs = 5
	c.Transcription.MaxPolls = 60

	// Rendu
	c.Render.BaseURL = "http://localhost:8084"
	c.Render.Format = "mp4"
	c.Render.Resolution = "1080"
	c.Render.PollIntervalSecs = 5
	c.Render.MaxPolls = 120

	// Stockage
	c.Storage.Endpoint = "localhost:9000"
	c.Storage.Bucket = "anime-artifacts"
	c.Storage.UseSSL = false

	// Pipeline
	c.Pipeline.FallbackDurationSecs = 5.0
	c.Pipeline.RequireComplete = false

	// ffmpeg
	c.FFmpeg.Name = "ffmpeg"
	c.FFmpeg.Path = ""

	c.ConfigVersion = CurrentConfigVersion

	return c
}

// Durées dérivées des champs en secondes.
func (c *Config) TTSBaseDelay() time.Duration { return time.Duration(c.TTS.BaseDelaySecs) * time.Second }
func (c *Config) TTSMaxDelay() time.Duration  { return time.Duration(c.TTS.MaxDelaySecs) * time.Second }
func (c *Config) TranscriptionPollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSecs) * time.Second
}
func (c *Config) RenderPollInterval() time.Duration {
	return time.Duration(c.Render.PollIntervalSecs) * time.Second
}

// Load lit la config; si le fichier n'existe pas, on copie l'exemple embarqué depuis internal/assets
func Load(path string) (*Config, error) {
	if path == "" {
		path = "animator.yaml"
	}

	// si le fichier n'existe pas -> essayer de créer à partir de l'asset embarqué
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultConfigFromEmbedded(path); err != nil {
			return nil, fmt.Errorf("échec de création du fichier de configuration par défaut : %w", err)
		}
	}

	cfg := defaultConfig()

	// lire le YAML brut et déserialiser dans cfg (les champs présents écraseront les defaults)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier de configuration %s impossible : %w", path, err)
	}

	// corriger les chemins Windows avec des backslashes
	data = bytes.ReplaceAll(data, []byte(`\`), []byte(`/`))

	// On déserialise dans cfg initialisé : les champs absents conservent les valeurs par défaut.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("analyse du fichier de configuration %s impossible : %w", path, err)
	}
	cfg.configFilePath = path

	cfg.normalizeConfig()

	// gestion de version : si le fichier est plus ancien -> orchestrer la mise à jour
	if cfg.ConfigVersion < CurrentConfigVersion {
		if err := orchestrateConfigUpgrade(cfg, cfg.ConfigVersion); err != nil {
			return nil, fmt.Errorf("échec de mise à niveau de la configuration : %w", err)
		}
		// re-normaliser au cas où la migration a modifié des valeurs
		cfg.normalizeConfig()
	}

	return cfg, nil
}

func createDefaultConfigFromEmbedded(dstPath string) error {
	// lire l'asset embarqué via assets.Embedded et DefaultConfigAsset
	b, err := assets.Embedded.ReadFile(assets.DefaultConfigAsset)
	if err != nil {
		return fmt.Errorf("lecture du modèle de configuration embarqué impossible : %w", err)
	}

	// s'assurer que le dossier parent existe
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("échec mkdir pour la configuration %s : %w", filepath.Dir(dstPath), err)
	}

	// écrire atomiquement sur disque (évite les fichiers partiels)
	if err := fsutil.WriteFileAtomic(dstPath, b, 0o644); err != nil {
		return fmt.Errorf("échec d'écriture du fichier de configuration %s : %w", dstPath, err)
	}

	// log utile pour le debugging
	fmt.Printf("info : fichier de configuration par défaut créé : %s\n", dstPath)
	return nil
}

func (c *Config) normalizeConfig() {
	// Nettoyage des chemins
	c.OutputDir = filepath.Clean(c.OutputDir)

	// Trim and normalize strings
	c.Render.Format = strings.TrimSpace(strings.ToLower(c.Render.Format))
	if c.Render.Format == "" {
		c.Render.Format = "mp4"
	}
	c.Render.Resolution = strings.TrimSpace(c.Render.Resolution)
	if c.Render.Resolution == "" {
		c.Render.Resolution = "1080"
	}

	// bornes du pipeline de synthèse : les zéros du YAML retombent sur les defaults
	if c.TTS.Concurrency <= 0 {
		c.TTS.Concurrency = 3
	}
	if c.TTS.MaxRetries <= 0 {
		c.TTS.MaxRetries = 5
	}
	if c.TTS.MaxAttempts <= 0 {
		c.TTS.MaxAttempts = 10
	}
	if c.TTS.BaseDelaySecs <= 0 {
		c.TTS.BaseDelaySecs = 2
	}
	if c.TTS.MaxDelaySecs <= 0 {
		c.TTS.MaxDelaySecs = 30
	}
	if c.TTS.MaxChunkChars <= 0 {
		c.TTS.MaxChunkChars = 950
	}
	if c.Transcription.PollIntervalSecs <= 0 {
		c.Transcription.PollIntervalSecs = 5
	}
	if c.Transcription.MaxPolls <= 0 {
		c.Transcription.MaxPolls = 60
	}
	if c.Render.PollIntervalSecs <= 0 {
		c.Render.PollIntervalSecs = 5
	}
	if c.Render.MaxPolls <= 0 {
		c.Render.MaxPolls = 120
	}
	if c.Pipeline.FallbackDurationSecs <= 0 {
		c.Pipeline.FallbackDurationSecs = 5.0
	}

	// centraliser la résolution/normalisation de ffmpeg
	c.ResolveFFmpegPaths()
}

// ResolveFFmpegPaths normalise le nom et résout les chemins complets vers
// ffmpeg et ffprobe. Appeler après avoir modifié cfg.FFmpeg.Name ou cfg.FFmpeg.Path.
func (c *Config) ResolveFFmpegPaths() {
	if c == nil {
		return
	}

	c.FFmpeg.Name = strings.TrimSpace(c.FFmpeg.Name)
	if c.FFmpeg.Name == "" {
		c.FFmpeg.Name = "ffmpeg"
	}

	ffmpegName := c.FFmpeg.Name
	ffprobeName := "ffprobe"

	// ajoute .exe si nécessaire
	if runtime.GOOS == "windows" {
		if !strings.HasSuffix(strings.ToLower(ffmpegName), ".exe") {
			ffmpegName += ".exe"
		}
		ffprobeName += ".exe"
	}

	// Résolution du chemin
	// si cfg.Path est vide -> recherche dans PATH par nom nu
	cfgPath := strings.TrimSpace(c.FFmpeg.Path)
	if cfgPath == "" {
		c.FFmpeg.ResolvedFFmpeg = ffmpegName
		c.FFmpeg.ResolvedFFprobe = ffprobeName
		return
	}
	cleanPath := filepath.Clean(cfgPath)

	// sinon on considère cfgPath comme un répertoire contenant les deux binaires
	c.FFmpeg.ResolvedFFmpeg = filepath.Join(cleanPath, ffmpegName)
	c.FFmpeg.ResolvedFFprobe = filepath.Join(cleanPath, ffprobeName)
}
