package config

import "testing"

func TestLoadSecretsSplitsKeys(t *testing.T) {
	t.Setenv("TTS_API_KEYS", " sk-1, sk-2 ,,sk-3 ")
	t.Setenv("STORAGE_ACCESS_KEY", "access")
	t.Setenv("STORAGE_SECRET_KEY", "secret")

	s, err := LoadSecrets()
	if err != nil {
		t.Fatalf("load secrets: %v", err)
	}
	if len(s.TTSAPIKeys) != 3 {
		t.Fatalf("want 3 keys, got %v", s.TTSAPIKeys)
	}
	for i, want := range []string{"sk-1", "sk-2", "sk-3"} {
		if s.TTSAPIKeys[i] != want {
			t.Fatalf("key %d: want %q, got %q", i, want, s.TTSAPIKeys[i])
		}
	}
	if s.StorageAccessKey != "access" || s.StorageSecretKey != "secret" {
		t.Fatalf("storage credentials not read from env")
	}
}

func TestLoadSecretsRequiresTTSKeys(t *testing.T) {
	t.Setenv("TTS_API_KEYS", " , ,")
	if _, err := LoadSecrets(); err == nil {
		t.Fatal("expected error for empty TTS_API_KEYS")
	}
}

func TestNormalizeConfigAppliesBounds(t *testing.T) {
	c := &Config{}
	c.normalizeConfig()

	if c.TTS.Concurrency != 3 || c.TTS.MaxRetries != 5 || c.TTS.MaxAttempts != 10 {
		t.Fatalf("tts bounds not applied: %+v", c.TTS)
	}
	if c.TTS.MaxChunkChars != 950 {
		t.Fatalf("want chunk limit 950, got %d", c.TTS.MaxChunkChars)
	}
	if c.Pipeline.FallbackDurationSecs != 5.0 {
		t.Fatalf("want fallback 5.0, got %g", c.Pipeline.FallbackDurationSecs)
	}
	if c.Render.Format != "mp4" {
		t.Fatalf("want default format mp4, got %q", c.Render.Format)
	}
}
