package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

// StimulusBucket reads and writes stimulus audio objects. Missing objects
// surface as domain.ErrNotFound.
type StimulusBucket interface {
	Open(ctx context.Context, key string) (io.ReadCloser, *ObjectAttrs, error)
	Attrs(ctx context.Context, key string) (*ObjectAttrs, error)
	Upload(dbc dbctx.Context, key string, r io.Reader) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

type stimulusBucket struct {
	log          *logger.Logger
	client       *storage.Client
	httpClient   *http.Client
	bucket       string
	emulatorHost string
}

func NewStimulusBucket(log *logger.Logger, cfg StorageConfig) (StimulusBucket, error) {
	if err := ValidateStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "StimulusBucket")

	ctx := context.Background()
	var (
		client *storage.Client
		err    error
	)
	if cfg.IsEmulatorMode() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
		client, err = storage.NewClient(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Stimulus storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"bucket", cfg.Bucket,
	)

	sb := &stimulusBucket{
		log:        serviceLog,
		client:     client,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		bucket:     cfg.Bucket,
	}
	if cfg.IsEmulatorMode() {
		sb.emulatorHost = strings.TrimRight(cfg.EmulatorHost, "/")
	}
	return sb, nil
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func (sb *stimulusBucket) Upload(dbc dbctx.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := sb.client.Bucket(sb.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ContentTypeForKey(key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (sb *stimulusBucket) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := sb.client.Bucket(sb.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

// The reader owns the timeout context; it is cancelled on Close.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (sb *stimulusBucket) emulatorURL(key string, media bool) string {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", sb.emulatorHost, url.PathEscape(sb.bucket), url.PathEscape(key))
	if media {
		u += "?alt=media"
	}
	return u
}

func (sb *stimulusBucket) Open(ctx context.Context, key string) (io.ReadCloser, *ObjectAttrs, error) {
	attrs, err := sb.Attrs(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if sb.emulatorHost != "" {
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, sb.emulatorURL(key, true), nil)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := sb.httpClient.Do(req)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			if resp.StatusCode == http.StatusNotFound {
				return nil, nil, fmt.Errorf("stimulus %q: %w", key, types.ErrNotFound)
			}
			return nil, nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, attrs, nil
	}

	r, err := sb.client.Bucket(sb.bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil, fmt.Errorf("stimulus %q: %w", key, types.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, attrs, nil
}

func (sb *stimulusBucket) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if sb.emulatorHost != "" {
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, sb.emulatorURL(key, false), nil)
		if err != nil {
			return nil, fmt.Errorf("failed creating emulator attrs request: %w", err)
		}
		resp, err := sb.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed emulator attrs request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("stimulus %q: %w", key, types.ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("emulator attrs failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		var payload struct {
			Size        string `json:"size"`
			ContentType string `json:"contentType"`
			Updated     string `json:"updated"`
			ETag        string `json:"etag"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode emulator attrs: %w", err)
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(payload.Size), 10, 64)
		updated, _ := time.Parse(time.RFC3339, strings.TrimSpace(payload.Updated))
		return &ObjectAttrs{Size: size, ContentType: payload.ContentType, Updated: updated, ETag: payload.ETag}, nil
	}

	attrs, err := sb.client.Bucket(sb.bucket).Object(key).Attrs(ctx2)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("stimulus %q: %w", key, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch GCS object attrs: %w", err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}

func (sb *stimulusBucket) Close() error {
	if sb == nil || sb.client == nil {
		return nil
	}
	return sb.client.Close()
}
