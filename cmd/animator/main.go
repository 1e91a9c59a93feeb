package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Luksuz/anime-content-creator/internal/app"
	"github.com/Luksuz/anime-content-creator/internal/assets"
	"github.com/Luksuz/anime-content-creator/internal/bootstrap"
	"github.com/Luksuz/anime-content-creator/internal/config"
	"github.com/Luksuz/anime-content-creator/internal/ui"
)

func main() {
	flags := parseFlags()

	// déterminer exePath/binDir
	binDir := "."
	exePath, err := os.Executable()
	if err != nil {
		log.Printf("impossible de déterminer le chemin de l'executable: %v", err)
	} else {
		binDir = filepath.Dir(exePath)
		fmt.Printf("Lancement depuis: %s\n", exePath)
	}

	// charger un éventuel .env (secrets en développement) ; absent = non fatal
	if err := godotenv.Load(filepath.Join(binDir, ".env")); err != nil {
		_ = godotenv.Load() // .env du répertoire courant en secours
	}

	// emplacement config par défaut
	if flags.ConfigPath == "animator.yaml" || flags.ConfigPath == "" {
		flags.ConfigPath = filepath.Join(binDir, "animator.yaml")
	}

	// s'assurer que le fichier config existe, si non on le crée
	if err := bootstrap.EnsureConfigPresent(
		flags.ConfigPath,
		assets.Embedded,
		assets.DefaultConfigAsset,
	); err != nil {
		log.Printf("erreur: EnsureConfigPresent: %v", err)
	}

	// charger la config depuis flags.ConfigPath
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// appliquer le flag -auto par-dessus la config
	if flags.Auto {
		cfg.AutoMode = true
	}

	// avertissements non fataux sur les chemins ffmpeg configurés
	if warnings, err := cfg.ValidateFFmpegPresence(); err != nil {
		log.Fatalf("config ffmpeg: %v", err)
	} else {
		for _, w := range warnings {
			log.Printf("warning: %s", w)
		}
	}

	// secrets depuis l'environnement (TTS_API_KEYS obligatoire)
	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}

	// root context qui s'annule sur SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tui := ui.NewTerminal()
	a := app.New(cfg, secrets, tui, flags)
	if err := a.Run(ctx); err != nil {
		log.Fatalf("app run: %v", err)
	}
}

func parseFlags() *app.CLIFlags {
	f := &app.CLIFlags{}
	flag.StringVar(&f.ConfigPath, "config", "animator.yaml", "path to config file")
	flag.StringVar(&f.URL, "url", "", "URL de la page à traiter (optionnel)")
	flag.BoolVar(&f.Auto, "auto", false, "exécution automatique sans interaction")
	flag.StringVar(&f.OutputDir, "output-dir", "", "dossier de sortie (prime sur la config)")
	flag.Parse()
	return f
}
