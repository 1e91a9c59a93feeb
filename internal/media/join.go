package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultJoinTimeout = 2 * time.Minute

// ConcatError signale l'échec de la concaténation ffmpeg, diagnostic de
// l'outil attaché.
type ConcatError struct {
	Stderr string
	Err    error
}

func (e *ConcatError) Error() string {
	return fmt.Sprintf("concatenation failed: %v: %s", e.Err, strings.TrimSpace(e.Stderr))
}

func (e *ConcatError) Unwrap() error { return e.Err }

// Joiner concatène des artefacts audio en copie de flux (pas de réencodage)
// via le demuxer concat de ffmpeg.
type Joiner struct {
	runner  *Runner
	Timeout time.Duration
}

func NewJoiner(runner *Runner) *Joiner {
	return &Joiner{runner: runner}
}

// Join concatène des artefacts en mémoire, ordre préservé. Entrée à un seul
// élément : renvoyée telle quelle sans invoquer ffmpeg (identité — évite
// aussi le cas connu des manifestes à un seul fichier mal gérés). Le
// répertoire temporaire est supprimé sur tous les chemins de sortie.
func (j *Joiner) Join(ctx context.Context, parts [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("join: aucune entrée")
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	dir, err := os.MkdirTemp("", "join-")
	if err != nil {
		return nil, fmt.Errorf("join: création du répertoire temporaire: %w", err)
	}
	defer os.RemoveAll(dir)

	inputs := make([]string, 0, len(parts))
	for i, part := range parts {
		path := filepath.Join(dir, fmt.Sprintf("part_%03d.mp3", i))
		if err := os.WriteFile(path, part, 0o644); err != nil {
			return nil, fmt.Errorf("join: écriture du fragment %d: %w", i, err)
		}
		inputs = append(inputs, path)
	}

	out := filepath.Join(dir, "joined.mp3")
	if err := j.JoinFiles(ctx, inputs, out); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// JoinFiles concatène les fichiers inputs (dans l'ordre) vers outPath.
// Codec/conteneur supposés compatibles : copie de flux uniquement.
func (j *Joiner) JoinFiles(ctx context.Context, inputs []string, outPath string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("join: aucune entrée")
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], outPath)
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultJoinTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	manifest, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return fmt.Errorf("join: création du manifeste: %w", err)
	}
	manifestPath := manifest.Name()
	defer os.Remove(manifestPath)

	if _, err := manifest.Write(ConcatManifest(inputs)); err != nil {
		manifest.Close()
		return fmt.Errorf("join: écriture du manifeste: %w", err)
	}
	if err := manifest.Close(); err != nil {
		return fmt.Errorf("join: fermeture du manifeste: %w", err)
	}

	_, stderr, err := j.runner.run(ctx, j.runner.FFmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outPath,
	)
	if err != nil {
		return &ConcatError{Stderr: stderr, Err: err}
	}
	return nil
}

// ConcatManifest produit le manifeste du demuxer concat : une ligne
// `file '...'` par entrée, quotes simples échappées.
func ConcatManifest(paths []string) []byte {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return []byte(b.String())
}
