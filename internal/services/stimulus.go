package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/gcp"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/platform/stimuluscache"
)

// maxStimulusBytes caps what is buffered for the cache; stimuli are short clips.
const maxStimulusBytes = 16 << 20

var stimulusSegment = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// StimulusKey is the object key for one sentence of one stimulus list.
func StimulusKey(testType string, version int, sentence string) string {
	return fmt.Sprintf("%s/v%d/%s.wav", testType, version, sentence)
}

type Stimulus struct {
	Key         string
	Body        []byte
	ContentType string
	ETag        string
	Cached      bool
}

type StimulusService interface {
	// Fetch returns the caller's version of a stimulus sentence.
	Fetch(ctx context.Context, userID uuid.UUID, testType, sentence string) (*Stimulus, error)
	Upload(ctx context.Context, testType string, version int, sentence string, r io.Reader) (string, error)
	List(ctx context.Context, testType string, version int) ([]string, error)
}

type stimulusService struct {
	log      *logger.Logger
	bucket   gcp.StimulusBucket
	cache    stimuluscache.Cache
	userRepo repos.UserRepo
	group    singleflight.Group
}

func NewStimulusService(log *logger.Logger, bucket gcp.StimulusBucket, cache stimuluscache.Cache, userRepo repos.UserRepo) StimulusService {
	return &stimulusService{
		log:      log.With("service", "StimulusService"),
		bucket:   bucket,
		cache:    cache,
		userRepo: userRepo,
	}
}

func validateStimulusSegments(testType, sentence string) error {
	if !stimulusSegment.MatchString(testType) {
		return fmt.Errorf("invalid test type %q: %w", testType, types.ErrInvalidArgument)
	}
	if !stimulusSegment.MatchString(sentence) {
		return fmt.Errorf("invalid sentence %q: %w", sentence, types.ErrInvalidArgument)
	}
	return nil
}

func (s *stimulusService) Fetch(ctx context.Context, userID uuid.UUID, testType, sentence string) (*Stimulus, error) {
	if err := validateStimulusSegments(testType, sentence); err != nil {
		return nil, err
	}
	users, err := s.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
	}
	version := users[0].StimulusVersion
	if version <= 0 {
		version = 1
	}
	key := StimulusKey(testType, version, sentence)

	if e, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("Stimulus cache read failed", "key", key, "error", err)
	} else if ok {
		return &Stimulus{Key: key, Body: e.Body, ContentType: e.ContentType, ETag: e.ETag, Cached: true}, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Stimulus), nil
}

func (s *stimulusService) load(ctx context.Context, key string) (*Stimulus, error) {
	rc, attrs, err := s.bucket.Open(ctx, key)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("open stimulus: %w", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, maxStimulusBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read stimulus: %w", err)
	}
	if n > maxStimulusBytes {
		return nil, fmt.Errorf("stimulus %q exceeds %d bytes", key, maxStimulusBytes)
	}

	ct := attrs.ContentType
	if ct == "" {
		ct = gcp.ContentTypeForKey(key)
	}
	st := &Stimulus{Key: key, Body: buf.Bytes(), ContentType: ct, ETag: attrs.ETag}
	if err := s.cache.Set(ctx, key, &stimuluscache.Entry{Body: st.Body, ContentType: st.ContentType, ETag: st.ETag}); err != nil {
		s.log.Warn("Stimulus cache write failed", "key", key, "error", err)
	}
	return st, nil
}

func (s *stimulusService) Upload(ctx context.Context, testType string, version int, sentence string, r io.Reader) (string, error) {
	if err := validateStimulusSegments(testType, sentence); err != nil {
		return "", err
	}
	if version <= 0 {
		return "", fmt.Errorf("version must be positive: %w", types.ErrInvalidArgument)
	}
	key := StimulusKey(testType, version, sentence)
	if err := s.bucket.Upload(dbctx.Context{Ctx: ctx}, key, r); err != nil {
		return "", fmt.Errorf("upload stimulus: %w", err)
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("Stimulus cache invalidation failed", "key", key, "error", err)
	}
	s.log.Info("Stimulus uploaded", "key", key)
	return key, nil
}

func (s *stimulusService) List(ctx context.Context, testType string, version int) ([]string, error) {
	if !stimulusSegment.MatchString(testType) || version <= 0 {
		return nil, fmt.Errorf("invalid stimulus list: %w", types.ErrInvalidArgument)
	}
	return s.bucket.ListKeys(ctx, fmt.Sprintf("%s/v%d/", testType, version))
}
