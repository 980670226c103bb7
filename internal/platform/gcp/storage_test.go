package gcp

import (
	"errors"
	"testing"
)

func TestStorageConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		host     string
		bucket   string
		want     StorageMode
		fallback bool
		errCode  ConfigErrorCode
	}{
		{name: "default_gcs", bucket: "stimuli", want: StorageModeGCS},
		{name: "explicit_gcs_ignores_host", mode: "gcs", host: "http://fake-gcs:4443", bucket: "stimuli", want: StorageModeGCS},
		{name: "explicit_emulator", mode: "gcs_emulator", host: "http://fake-gcs:4443", bucket: "stimuli", want: StorageModeGCSEmulator},
		{name: "inferred_emulator", host: "http://fake-gcs:4443/", bucket: "stimuli", want: StorageModeGCSEmulator, fallback: true},
		{name: "invalid_mode", mode: "local", bucket: "stimuli", errCode: ConfigErrorInvalidMode},
		{name: "missing_bucket", mode: "gcs", errCode: ConfigErrorMissingBucket},
		{name: "missing_host", mode: "gcs_emulator", bucket: "stimuli", errCode: ConfigErrorMissingEmulatorHost},
		{name: "relative_host", mode: "gcs_emulator", host: "fake-gcs:4443", bucket: "stimuli", errCode: ConfigErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.host)
			t.Setenv("STIMULUS_GCS_BUCKET_NAME", tc.bucket)

			cfg, err := StorageConfigFromEnv()
			if tc.errCode != "" {
				var cerr *ConfigError
				if !errors.As(err, &cerr) || cerr.Code != tc.errCode {
					t.Fatalf("error: got=%v want code %q", err, tc.errCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("StorageConfigFromEnv: %v", err)
			}
			if cfg.Mode != tc.want || cfg.CompatibilityFallback != tc.fallback {
				t.Fatalf("config: got=(%q,%v) want=(%q,%v)", cfg.Mode, cfg.CompatibilityFallback, tc.want, tc.fallback)
			}
		})
	}
}

func TestStorageConfigHelpers(t *testing.T) {
	cfg := StorageConfig{Mode: StorageModeGCS}
	if cfg.IsEmulatorMode() {
		t.Fatalf("gcs config should not be emulator mode")
	}
	if got := cfg.ModeSource(); got != "explicit_or_default" {
		t.Fatalf("ModeSource: want=%q got=%q", "explicit_or_default", got)
	}
	cfg = StorageConfig{Mode: StorageModeGCSEmulator, CompatibilityFallback: true}
	if !cfg.IsEmulatorMode() || cfg.ModeSource() != "compatibility_fallback" {
		t.Fatalf("emulator config helpers: %+v", cfg)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"sin/v1/s01.wav":   "audio/wav",
		"SIN/V2/S01.WAV":   "audio/wav",
		"a/v1/x.mp3?x=1":   "audio/mpeg",
		"manifest.json":    "application/json",
		"a/v1/unknown.bin": "application/octet-stream",
	}
	for key, want := range cases {
		if got := ContentTypeForKey(key); got != want {
			t.Fatalf("ContentTypeForKey(%q): got=%q want=%q", key, got, want)
		}
	}
}
