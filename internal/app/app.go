package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Luksuz/anime-content-creator/internal/config"
	"github.com/Luksuz/anime-content-creator/internal/keypool"
	"github.com/Luksuz/anime-content-creator/internal/media"
	"github.com/Luksuz/anime-content-creator/internal/providers/capture"
	"github.com/Luksuz/anime-content-creator/internal/providers/render"
	"github.com/Luksuz/anime-content-creator/internal/providers/tts"
	"github.com/Luksuz/anime-content-creator/internal/providers/vision"
	"github.com/Luksuz/anime-content-creator/internal/segment"
	"github.com/Luksuz/anime-content-creator/internal/storage"
	"github.com/Luksuz/anime-content-creator/internal/synth"
	"github.com/Luksuz/anime-content-creator/internal/timeline"
	"github.com/Luksuz/anime-content-creator/internal/transcribe"
	"github.com/Luksuz/anime-content-creator/internal/ui"
	"github.com/Luksuz/anime-content-creator/pkg/model"
)

const dirPerm = 0o755

// CLIFlags contient les information venant des flags de l'app
type CLIFlags struct {
	ConfigPath string
	URL        string
	Auto       bool
	OutputDir  string
}

// App orchestre les différentes dépendances (UI, providers, ffmpeg, stockage).
type App struct {
	cfg     *config.Config
	secrets *config.Secrets
	ui      ui.Interface
	flags   *CLIFlags
}

// New construit l'application en initialisant les dépendances par défaut.
// Pour les tests, on préférera construire App en injectant des implémentations mock.
func New(cfg *config.Config, secrets *config.Secrets, uiClient ui.Interface, flags *CLIFlags) *App {
	return &App{
		cfg:     cfg,
		secrets: secrets,
		ui:      uiClient,
		flags:   flags,
	}
}

// Run exécute le flux principal : capture -> narration -> synthèse/assemblage
// -> transcription -> rendu -> téléchargement.
func (a *App) Run(ctx context.Context) error {
	// Récupération de l'URL : priorité flag > clipboard > prompt
	pageURL := a.flags.URL
	if pageURL == "" {
		u, err := a.ui.GetPageURL(ctx)
		if err != nil {
			return fmt.Errorf("get url: %w", err)
		}
		pageURL = u
	} else if !ui.IsPageURL(pageURL) {
		return fmt.Errorf("URL invalide passée en flag : %q", pageURL)
	}

	// si l'utilisateur a passé -output-dir, il prime sur la config
	outDir := a.cfg.OutputDir
	if a.flags.OutputDir != "" {
		outDir = a.flags.OutputDir
	}
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	// vérifier ffmpeg/ffprobe avant de consommer le moindre crédit provider
	runner := media.NewRunner(a.cfg.FFmpeg.ResolvedFFmpeg, a.cfg.FFmpeg.ResolvedFFprobe)
	if err := runner.CheckBinaries(ctx); err != nil {
		return err
	}

	// stockage durable
	store, err := storage.NewClient(
		a.cfg.Storage.Endpoint,
		a.secrets.StorageAccessKey,
		a.secrets.StorageSecretKey,
		a.cfg.Storage.Bucket,
		a.cfg.Storage.UseSSL,
	)
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	// identifiant de run : préfixe de tous les artefacts durables
	runID := uuid.NewString()

	// 1) capture des panels
	a.ui.PrintInfo(ctx, fmt.Sprintf("Capture des panels de %s...", pageURL))
	capClient := capture.NewClient(a.cfg.Capture.BaseURL, a.secrets.CaptureAPIKey)
	imageURLs, err := capClient.CapturePanels(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("capture panels: %w", err)
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("%d panels capturés.", len(imageURLs)))

	// 2) narration par panel
	a.ui.PrintInfo(ctx, "Génération de la narration...")
	visClient := vision.NewClient(a.cfg.Vision.BaseURL, a.secrets.VisionAPIKey)
	chunks, err := visClient.Narrate(ctx, imageURLs, a.cfg.Vision.Prompt)
	if err != nil {
		return fmt.Errorf("narrate panels: %w", err)
	}

	// 3) synthèse + réconciliation des segments
	a.ui.PrintInfo(ctx, fmt.Sprintf("Synthèse vocale de %d segments...", len(chunks)))
	outcome, err := a.synthesizeAndReconcile(ctx, runner, chunks)
	if err != nil {
		var incomplete *segment.IncompleteError
		if errors.As(err, &incomplete) {
			return fmt.Errorf("segments manquants %v : relancer ou passer require_complete à false", incomplete.Missing)
		}
		return err
	}
	for _, f := range outcome.Failures {
		a.ui.PrintError(ctx, fmt.Sprintf("segment %d abandonné : %v", f.Index, f.Err))
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("Audio joint : %.1fs pour %d segments.", outcome.Joined.Duration, len(outcome.Joined.Segments)))

	// 4) upload de l'audio joint
	audioURL, err := store.Upload(ctx, "runs/"+runID+"/narration.mp3", outcome.Joined.Audio, "audio/mpeg")
	if err != nil {
		return fmt.Errorf("upload narration: %w", err)
	}

	// 5) transcription (optionnelle, jamais fatale pour le pipeline)
	captionURL := ""
	if a.cfg.Transcription.Enabled {
		captionURL = a.transcribeNarration(ctx, store, runID, audioURL)
	}

	// 6) timeline déclarative + rendu
	renderReq, err := timeline.Build(outcome.Timeline, audioURL, captionURL, model.OutputSpec{
		Format:     a.cfg.Render.Format,
		Resolution: a.cfg.Render.Resolution,
	})
	if err != nil {
		return fmt.Errorf("build timeline: %w", err)
	}

	// snapshot de la requête pour rejouer ou diagnostiquer le run
	if snapshot, merr := json.MarshalIndent(renderReq, "", "  "); merr == nil {
		if _, uerr := store.Upload(ctx, "runs/"+runID+"/render-request.json", snapshot, "application/json"); uerr != nil {
			a.ui.PrintError(ctx, fmt.Sprintf("warning: snapshot de la requête non archivé : %v", uerr))
		}
	}

	a.ui.PrintInfo(ctx, "Soumission du rendu vidéo...")
	renderClient := render.NewClient(a.cfg.Render.BaseURL, a.secrets.RenderAPIKey)
	jobID, err := renderClient.Submit(ctx, renderReq)
	if err != nil {
		return fmt.Errorf("submit render: %w", err)
	}
	videoURL, err := renderClient.WaitForVideo(ctx, jobID, a.cfg.RenderPollInterval(), a.cfg.Render.MaxPolls,
		func(status string, percent int) { a.ui.OnStage("rendu "+status, percent) })
	if err != nil {
		return fmt.Errorf("wait for video: %w", err)
	}

	// 7) téléchargement du résultat
	outPath, err := a.downloadVideo(ctx, videoURL, outDir, runID)
	if err != nil {
		return err
	}
	a.ui.PrintInfo(ctx, fmt.Sprintf("Vidéo écrite dans :\n%s", outPath))

	// Attendre terminaison (Ctrl+C) via UI, sauf en mode automatique
	if a.cfg.AutoMode {
		return nil
	}
	return a.ui.WaitForExit(ctx)
}

// synthesizeAndReconcile câble pool de clés, exécuteur, sonde de durée et
// jointure ffmpeg, puis lance la réconciliation.
func (a *App) synthesizeAndReconcile(ctx context.Context, runner *media.Runner, chunks []model.NarrationChunk) (*segment.Outcome, error) {
	pool := keypool.NewMemoryStore(a.secrets.TTSAPIKeys)
	prober := media.NewProber(runner, a.cfg.Pipeline.FallbackDurationSecs)
	joiner := media.NewJoiner(runner)
	ttsClient := tts.NewClient(a.cfg.TTS.BaseURL, a.cfg.TTS.VoiceID, a.cfg.TTS.ModelID)

	exec := &synth.Executor{
		Synthesize:    ttsClient.Synthesize,
		Combine:       joiner.Join,
		Pool:          pool,
		Observer:      a.ui,
		Concurrency:   a.cfg.TTS.Concurrency,
		MaxRetries:    a.cfg.TTS.MaxRetries,
		MaxAttempts:   a.cfg.TTS.MaxAttempts,
		BaseDelay:     a.cfg.TTSBaseDelay(),
		MaxDelay:      a.cfg.TTSMaxDelay(),
		MaxChunkChars: a.cfg.TTS.MaxChunkChars,
	}

	rec := &segment.Reconciler{
		Exec:  exec,
		Probe: prober.DurationOfBytes,
		Join:  joiner.Join,
	}
	return rec.Reconcile(ctx, chunks, segment.Options{
		RequireComplete: a.cfg.Pipeline.RequireComplete,
	})
}

// transcribeNarration soumet l'audio joint au provider de transcription et
// re-héberge le transcript produit. Toute défaillance est rapportée mais ne
// casse jamais le pipeline : la vidéo part alors sans sous-titres. L'échec
// de re-hébergement est distingué de l'échec de transcription côté provider.
func (a *App) transcribeNarration(ctx context.Context, store *storage.Client, runID, audioURL string) string {
	a.ui.PrintInfo(ctx, "Transcription de la narration...")
	poller := &transcribe.Poller{
		API:      transcribe.NewClient(a.cfg.Transcription.BaseURL, a.secrets.TranscribeAPIKey),
		Persist:  a.makePersistSubtitle(store, runID),
		Interval: a.cfg.TranscriptionPollInterval(),
		MaxPolls: a.cfg.Transcription.MaxPolls,
		OnProgress: func(state transcribe.State, percent int) {
			a.ui.OnStage("transcription "+string(state), percent)
		},
	}

	durable, err := poller.Run(ctx, audioURL)
	if err != nil {
		var perr *transcribe.PersistError
		switch {
		case errors.As(err, &perr):
			a.ui.PrintError(ctx, fmt.Sprintf("transcript produit mais re-hébergement impossible, vidéo sans sous-titres : %v", perr))
		case errors.Is(err, transcribe.ErrTimedOut):
			a.ui.PrintError(ctx, "transcription trop lente, vidéo sans sous-titres")
		default:
			a.ui.PrintError(ctx, fmt.Sprintf("transcription échouée, vidéo sans sous-titres : %v", err))
		}
		return ""
	}
	return durable
}

// downloadVideo récupère la vidéo rendue et l'écrit atomiquement dans outDir.
func (a *App) downloadVideo(ctx context.Context, videoURL, outDir, runID string) (string, error) {
	a.ui.PrintInfo(ctx, "Téléchargement de la vidéo rendue...")
	data, err := a.fetchArtifact(ctx, videoURL, 10*time.Minute)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	return a.saveVideo(outDir, runID, data)
}
