package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFFmpegPresence vérifie de manière statique que si un chemin résolu
// pointe hors du PATH, le fichier existe et que le répertoire parent est accessible.
// Retourne warnings (non-fataux) et une erreur si c'est critique.
func (c *Config) ValidateFFmpegPresence() (warnings []string, err error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}

	// assure que les resolved paths sont calculés
	c.ResolveFFmpegPaths()

	for _, p := range []string{c.FFmpeg.ResolvedFFmpeg, c.FFmpeg.ResolvedFFprobe} {
		p = strings.TrimSpace(p)
		if p == "" {
			warnings = append(warnings, "aucun chemin résolu pour ffmpeg/ffprobe; recherche dans PATH possible")
			continue
		}

		// nom nu sans séparateur : résolu via PATH au lancement, rien à vérifier ici
		if filepath.Base(p) == p {
			continue
		}

		parent := filepath.Dir(p)
		if st, serr := os.Stat(parent); serr != nil {
			if os.IsNotExist(serr) {
				warnings = append(warnings, fmt.Sprintf("le dossier parent du chemin ffmpeg n'existe pas : %s", parent))
			} else {
				return warnings, fmt.Errorf("impossible d'accéder au dossier parent %s : %w", parent, serr)
			}
		} else if !st.IsDir() {
			return warnings, fmt.Errorf("le parent du chemin ffmpeg n'est pas un répertoire : %s", parent)
		}

		// vérifier si le fichier existe (stat)
		if info, serr := os.Stat(p); serr != nil {
			if os.IsNotExist(serr) {
				warnings = append(warnings, fmt.Sprintf("binaire introuvable à l'emplacement configuré : %s", p))
				continue
			}
			return warnings, fmt.Errorf("erreur lors du test du fichier %s : %w", p, serr)
		} else if info.IsDir() {
			return warnings, fmt.Errorf("le chemin configuré est un répertoire : %s", p)
		}
	}

	return warnings, nil
}
