package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/repositories"
)

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates []models.Candidate
	createErr  error
	creates    int
}

func (r *fakeCandidateRepo) Create(c *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.candidates {
		if existing.ID == c.ID {
			return nil
		}
	}
	r.candidates = append(r.candidates, *c)
	return nil
}

func (r *fakeCandidateRepo) FindByID(id uuid.UUID) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.candidates {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, repositories.ErrCandidateNotFound
}

func (r *fakeCandidateRepo) FindByIDs(ids []uuid.UUID) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, id := range ids {
		if c, err := r.FindByID(id); err == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCandidateRepo) FindAll() ([]models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Candidate(nil), r.candidates...), nil
}

func (r *fakeCandidateRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]models.Job
}

func (r *fakeJobRepo) Create(job *models.Job) error {
	if r.jobs == nil {
		r.jobs = map[uuid.UUID]models.Job{}
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	return &job, nil
}

func (r *fakeJobRepo) FindAll() ([]models.Job, error) {
	var out []models.Job
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out, nil
}

type fakeApplicationRepo struct {
	mu   sync.Mutex
	apps []models.Application
}

func (r *fakeApplicationRepo) Create(app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.CandidateID == app.CandidateID && existing.JobID == app.JobID {
			return nil
		}
	}
	r.apps = append(r.apps, *app)
	return nil
}

func (r *fakeApplicationRepo) FindByJob(jobID uuid.UUID) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Application
	for _, a := range r.apps {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) all() []models.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Application(nil), r.apps...)
}

type fakeStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	// onSave runs after each write, outside the lock.
	onSave func()
}

func (s *fakeStorage) SaveBytes(data []byte, prefix string, mimeType string) (string, string, error) {
	s.mu.Lock()
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	name := prefix + "_" + uuid.NewString() + extensionFor(mimeType)
	s.files[name] = append([]byte(nil), data...)
	onSave := s.onSave
	s.mu.Unlock()

	if onSave != nil {
		onSave()
	}
	return name, "/uploads/" + name, nil
}

func (s *fakeStorage) GetFilePath(filename string) string { return "/uploads/" + filename }

func (s *fakeStorage) DeleteFile(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	s.deleted = append(s.deleted, filename)
	return nil
}

func (s *fakeStorage) EnsureUploadDir() error { return nil }

// fakeExtractor answers by file content: data is used as the lookup key.
type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]models.ParsedCandidate
	errs    map[string]error
	calls   []string
	onCall  func()
}

func (e *fakeExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error) {
	key := string(data)
	e.mu.Lock()
	e.calls = append(e.calls, key)
	onCall := e.onCall
	result, ok := e.results[key]
	err := e.errs[key]
	e.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("unexpected payload")
	}
	return &ExtractionResult{Candidate: result}, nil
}

func (e *fakeExtractor) callOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

type fakeScorer struct {
	mu    sync.Mutex
	fit   *models.FitEvaluation
	err   error
	calls int
}

func (s *fakeScorer) Score(ctx context.Context, candidate models.ParsedCandidate, job models.Job) (*models.FitEvaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.fit, nil
}

// passthroughImages keeps payloads untouched so the fake extractor can key
// on file content; portraits are a fixed marker.
type passthroughImages struct{}

func (passthroughImages) Resize(data []byte, mimeType string) ([]byte, string, error) {
	return data, mimeType, nil
}

func (passthroughImages) CropPortrait(data []byte, mimeType string, faceBox []float64) ([]byte, error) {
	if len(faceBox) != 4 {
		return nil, ErrInvalidFaceBox
	}
	return []byte("portrait"), nil
}

type queueFixture struct {
	queue      *uploadQueue
	candidates *fakeCandidateRepo
	jobs       *fakeJobRepo
	apps       *fakeApplicationRepo
	storage    *fakeStorage
	extractor  *fakeExtractor
	scorer     *fakeScorer
}

func newQueueFixture(t *testing.T, images ImageTransformer) *queueFixture {
	t.Helper()
	if images == nil {
		images = passthroughImages{}
	}

	f := &queueFixture{
		candidates: &fakeCandidateRepo{},
		jobs:       &fakeJobRepo{jobs: map[uuid.UUID]models.Job{}},
		apps:       &fakeApplicationRepo{},
		storage:    &fakeStorage{},
		extractor: &fakeExtractor{
			results: map[string]models.ParsedCandidate{},
			errs:    map[string]error{},
		},
		scorer: &fakeScorer{fit: &models.FitEvaluation{Score: 72, Reasoning: "solid backend match"}},
	}
	f.queue = NewUploadQueue(images, f.extractor, f.scorer, f.candidates, f.jobs, f.apps, f.storage, nil).(*uploadQueue)
	return f
}

func (f *queueFixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.queue.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.queue.Stop()
	})
}

func (f *queueFixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.queue.WaitIdle(ctx))
}

func pdfFile(content string) UploadFile {
	return UploadFile{Name: content + ".pdf", MimeType: "application/pdf", Data: []byte(content)}
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
