package ui

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Luksuz/anime-content-creator/internal/clipboard"
	"github.com/Luksuz/anime-content-creator/internal/synth"
)

type terminalUI struct {
	reader *bufio.Reader
}

func NewTerminal() Interface {
	return &terminalUI{reader: bufio.NewReader(os.Stdin)}
}

// IsPageURL vérifie que s est une URL http(s) absolue avec un hôte.
func IsPageURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (t *terminalUI) GetPageURL(ctx context.Context) (string, error) {
	// 1) clipboard
	if clip, err := clipboard.ReadAll(); err == nil {
		clip = strings.TrimSpace(clip)
		if IsPageURL(clip) {
			t.PrintInfo(ctx, fmt.Sprintf("Utilisation de l'URL depuis le presse-papier: %s", clip))
			return clip, nil
		}
	}
	// 2) prompt
	for {
		fmt.Print("Entrez l'URL de la page à traiter: ")
		input, err := t.reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("lecture stdin: %w", err)
		}
		u := strings.TrimSpace(input)
		if IsPageURL(u) {
			return u, nil
		}
		fmt.Println("❌ URL invalide. Essayez à nouveau.")
	}
}

func (t *terminalUI) WaitForExit(ctx context.Context) error {
	fmt.Println("\n\nAppuyez sur Ctrl+C pour quitter.")

	// Prépare le canal pour les signaux d'interruption
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done(): // Context annulé ailleurs
		return ctx.Err()
	case <-sigCh: // Reçu Ctrl+C (SIGINT ou SIGTERM)
		return nil
	}
}

func (t *terminalUI) PrintInfo(ctx context.Context, s string) {
	fmt.Println(s)
}

func (t *terminalUI) PrintError(ctx context.Context, s string) {
	fmt.Fprintln(os.Stderr, s)
}

// OnJobStateChange affiche les transitions utiles : démarrage silencieux,
// tentatives de retry visibles, issue finale par segment.
func (t *terminalUI) OnJobStateChange(index int, state synth.State, attempt int, err error) {
	switch state {
	case synth.StateRunning:
		if attempt > 1 {
			fmt.Printf("  segment %d : nouvelle tentative (%d)\n", index, attempt)
		}
	case synth.StateSucceeded:
		fmt.Printf("  segment %d : audio généré\n", index)
	case synth.StateFailed:
		fmt.Fprintf(os.Stderr, "  segment %d : échec : %v\n", index, err)
	}
}

func (t *terminalUI) OnStage(stage string, percent int) {
	fmt.Printf("  %s... %d%%\n", stage, percent)
}
