package config

import (
	"fmt"
	"os"
	"strings"
)

// Secrets regroupe tout ce qui ne doit jamais apparaître dans le YAML :
// clés API et credentials de stockage, lus depuis l'environnement
// (un fichier .env chargé par godotenv suffit en développement).
type Secrets struct {
	TTSAPIKeys       []string
	CaptureAPIKey    string
	VisionAPIKey     string
	TranscribeAPIKey string
	RenderAPIKey     string
	StorageAccessKey string
	StorageSecretKey string
}

// LoadSecrets lit les variables d'environnement. Seules les clés TTS sont
// obligatoires : sans elles le pool de credentials serait vide d'entrée.
func LoadSecrets() (*Secrets, error) {
	s := &Secrets{
		CaptureAPIKey:    os.Getenv("CAPTURE_API_KEY"),
		VisionAPIKey:     os.Getenv("VISION_API_KEY"),
		TranscribeAPIKey: os.Getenv("TRANSCRIBE_API_KEY"),
		RenderAPIKey:     os.Getenv("RENDER_API_KEY"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
	}

	raw := os.Getenv("TTS_API_KEYS")
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			s.TTSAPIKeys = append(s.TTSAPIKeys, k)
		}
	}
	if len(s.TTSAPIKeys) == 0 {
		return nil, fmt.Errorf("la variable TTS_API_KEYS est vide : au moins une clé de synthèse est requise")
	}

	return s, nil
}
