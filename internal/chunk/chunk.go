// Package chunk découpe un texte de narration en morceaux sûrs pour le
// provider TTS, sans casser les mots ni les phrases. Fonction pure :
// même entrée -> même sortie, aucun effet de bord.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Split découpe text en morceaux d'au plus max caractères (runes).
// Les frontières préfèrent les fins de phrase (. ! ?) puis les espaces.
// Cas limite : un mot seul plus long que max est émis tel quel dans son
// propre morceau — dépassement accepté, pas une erreur.
func Split(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	// ajoute un fragment (déjà <= max) au morceau courant, avec un espace
	// de séparation si besoin
	add := func(frag string, fragLen int) {
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(frag)
		curLen += fragLen
	}

	for _, sentence := range splitSentences(text) {
		sl := utf8.RuneCountInString(sentence)
		if sl <= max {
			if curLen > 0 && curLen+1+sl > max {
				flush()
			}
			add(sentence, sl)
			continue
		}

		// phrase trop longue : repli sur les frontières de mots
		for _, word := range strings.Fields(sentence) {
			wl := utf8.RuneCountInString(word)
			if wl > max {
				// mot insécable plus long que la limite : émis verbatim
				flush()
				out = append(out, word)
				continue
			}
			if curLen > 0 && curLen+1+wl > max {
				flush()
			}
			add(word, wl)
		}
	}
	flush()
	return out
}

// splitSentences découpe text en phrases, terminateur inclus. Les espaces
// autour de chaque phrase sont retirés ; aucune phrase vide n'est produite.
func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
