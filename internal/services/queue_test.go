package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"alfredoptarigan/talent-intake/internal/config"
	"alfredoptarigan/talent-intake/internal/models"
)

func TestEnqueue_CreatesIdleItemsInOrder(t *testing.T) {
	f := newQueueFixture(t, nil)

	items := f.queue.Enqueue([]UploadFile{pdfFile("a"), pdfFile("b")}, nil)

	require.Len(t, items, 2)
	assert.Equal(t, "a.pdf", items[0].FileName)
	assert.Equal(t, "b.pdf", items[1].FileName)
	for _, it := range items {
		assert.Equal(t, models.UploadIdle, it.Status)
		assert.NotEqual(t, uuid.Nil, it.ID)
	}

	snapshot := f.queue.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, items[0].ID, snapshot[0].ID)
	assert.Equal(t, items[1].ID, snapshot[1].ID)
}

func TestEnqueue_EmptyBatchIsNoop(t *testing.T) {
	f := newQueueFixture(t, nil)

	assert.Empty(t, f.queue.Enqueue(nil, nil))
	assert.Empty(t, f.queue.Snapshot())
}

func TestEnqueue_SameFileTwiceGivesTwoItems(t *testing.T) {
	f := newQueueFixture(t, nil)
	file := pdfFile("same")

	first := f.queue.Enqueue([]UploadFile{file}, nil)
	second := f.queue.Enqueue([]UploadFile{file}, nil)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Len(t, f.queue.Snapshot(), 2)
}

func TestQueue_ProcessesInOrderOneAtATime(t *testing.T) {
	f := newQueueFixture(t, nil)
	for _, key := range []string{"one", "two", "three", "four"} {
		f.extractor.results[key] = models.ParsedCandidate{
			FullName: "Person " + key,
			Email:    key + "@example.com",
		}
	}

	var mu sync.Mutex
	maxProcessing := 0
	f.extractor.onCall = func() {
		processing := 0
		for _, it := range f.queue.Snapshot() {
			if it.Status == models.UploadProcessing {
				processing++
			}
		}
		mu.Lock()
		maxProcessing = max(maxProcessing, processing)
		mu.Unlock()
	}

	f.queue.Enqueue([]UploadFile{pdfFile("one"), pdfFile("two")}, nil)
	f.queue.Enqueue([]UploadFile{pdfFile("three"), pdfFile("four")}, nil)
	f.start(t)
	f.waitIdle(t)

	assert.Equal(t, []string{"one", "two", "three", "four"}, f.extractor.callOrder())
	mu.Lock()
	assert.Equal(t, 1, maxProcessing)
	mu.Unlock()

	for _, it := range f.queue.Snapshot() {
		assert.Equal(t, models.UploadSuccess, it.Status, it.FileName)
		require.NotNil(t, it.CandidateID)
	}
	assert.Equal(t, 4, f.candidates.createCount())
}

func TestQueue_FailureIsIsolatedToItsItem(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["first"] = models.ParsedCandidate{FullName: "First", Email: "first@example.com"}
	f.extractor.errs["broken"] = errors.New("model unavailable")
	f.extractor.results["last"] = models.ParsedCandidate{FullName: "Last", Email: "last@example.com"}

	f.queue.Enqueue([]UploadFile{pdfFile("first"), pdfFile("broken"), pdfFile("last")}, nil)
	f.start(t)
	f.waitIdle(t)

	items := f.queue.Snapshot()
	require.Len(t, items, 3)
	assert.Equal(t, models.UploadSuccess, items[0].Status)
	assert.Equal(t, models.UploadError, items[1].Status)
	assert.Equal(t, "model unavailable", items[1].ErrorMessage)
	assert.Nil(t, items[1].CandidateID)
	assert.Equal(t, models.UploadSuccess, items[2].Status)
	assert.Equal(t, 2, f.candidates.createCount())
}

func TestQueue_EnqueueWhileRunningWakesWorker(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["early"] = models.ParsedCandidate{FullName: "Early"}
	f.extractor.results["late"] = models.ParsedCandidate{FullName: "Late"}

	f.start(t)
	f.queue.Enqueue([]UploadFile{pdfFile("early")}, nil)
	f.waitIdle(t)
	f.queue.Enqueue([]UploadFile{pdfFile("late")}, nil)
	f.waitIdle(t)

	assert.Equal(t, []string{"early", "late"}, f.extractor.callOrder())
}

func TestQueue_ImageWithFaceSavesPortrait(t *testing.T) {
	images := NewImageTransformer(config.DefaultImageConfig(), nil)
	f := newQueueFixture(t, images)

	source := solidPNG(t, 400, 600, color.RGBA{R: 200, G: 180, B: 160, A: 255})
	payload, _, err := images.Resize(source, "image/png")
	require.NoError(t, err)
	f.extractor.results[string(payload)] = models.ParsedCandidate{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		FaceBox:  []float64{100, 300, 300, 700},
	}

	f.queue.Enqueue([]UploadFile{{Name: "ada.png", MimeType: "image/png", Data: source}}, nil)
	f.start(t)
	f.waitIdle(t)

	items := f.queue.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, models.UploadSuccess, items[0].Status)
	assert.True(t, items[0].HasPortrait)
	assert.Nil(t, items[0].Fit)
	assert.Empty(t, f.apps.all())

	saved, err := f.candidates.FindByID(*items[0].CandidateID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", saved.FullName)
	assert.NotEmpty(t, saved.PhotoPath)
	assert.NotEmpty(t, saved.CVPath)
	assert.Equal(t, "image/png", saved.CVMimeType)
	assert.Equal(t, models.CandidateActive, saved.Status)
}

func TestQueue_TIFFScanIsNormalized(t *testing.T) {
	images := NewImageTransformer(config.DefaultImageConfig(), nil)
	f := newQueueFixture(t, images)

	var source bytes.Buffer
	require.NoError(t, tiff.Encode(&source, image.NewGray(image.Rect(0, 0, 300, 400)), nil))
	payload, payloadMime, err := images.Resize(source.Bytes(), "image/tiff")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", payloadMime)
	f.extractor.results[string(payload)] = models.ParsedCandidate{FullName: "Tiff Scan"}

	f.queue.Enqueue([]UploadFile{{Name: "cv.tiff", MimeType: "image/tiff", Data: source.Bytes()}}, nil)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadSuccess, item.Status, item.ErrorMessage)
	assert.Equal(t, "Tiff Scan", item.CandidateName)
}

func TestQueue_StoredCVIsOriginalBytes(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["original"] = models.ParsedCandidate{FullName: "Grace Hopper"}

	f.queue.Enqueue([]UploadFile{pdfFile("original")}, nil)
	f.start(t)
	f.waitIdle(t)

	f.storage.mu.Lock()
	defer f.storage.mu.Unlock()
	require.Len(t, f.storage.files, 1)
	for _, data := range f.storage.files {
		assert.Equal(t, []byte("original"), data)
	}
}

func TestQueue_InvalidFaceBoxStillSucceeds(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "No Face", FaceBox: []float64{1, 2, 3}}

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, nil)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadSuccess, item.Status)
	assert.False(t, item.HasPortrait)
}

func TestQueue_DuplicateEmailIsHeld(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), FullName: "Someone Else", Email: "x@y.com"}}
	f.extractor.results["dup"] = models.ParsedCandidate{FullName: "New Person", Email: "X@Y.com "}

	f.queue.Enqueue([]UploadFile{pdfFile("dup")}, nil)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadDuplicate, item.Status)
	assert.Equal(t, models.DuplicateReasonEmail, item.DuplicateReason)
	assert.Equal(t, "New Person", item.CandidateName)
	assert.Nil(t, item.CandidateID)
	assert.Equal(t, 0, f.candidates.createCount())
}

func TestQueue_DuplicateWithinBatch(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["a"] = models.ParsedCandidate{FullName: "Ann Smith", Email: "ann@x.com"}
	f.extractor.results["b"] = models.ParsedCandidate{FullName: "Ann B. Smith", Email: "ANN@x.com"}

	f.queue.Enqueue([]UploadFile{pdfFile("a"), pdfFile("b")}, nil)
	f.start(t)
	f.waitIdle(t)

	items := f.queue.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, models.UploadSuccess, items[0].Status)
	assert.Equal(t, models.UploadDuplicate, items[1].Status)
	assert.Equal(t, models.DuplicateReasonEmail, items[1].DuplicateReason)
	assert.Equal(t, 1, f.candidates.createCount())
}

func TestForceSave_PersistsDuplicate(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), FullName: "Jane Doe"}}
	f.extractor.results["jane"] = models.ParsedCandidate{FullName: "jane doe"}

	items := f.queue.Enqueue([]UploadFile{pdfFile("jane")}, nil)
	f.start(t)
	f.waitIdle(t)

	held, ok := f.queue.Get(items[0].ID)
	require.True(t, ok)
	require.Equal(t, models.UploadDuplicate, held.Status)
	assert.Equal(t, models.DuplicateReasonName, held.DuplicateReason)

	saved, err := f.queue.ForceSave(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadSuccess, saved.Status)
	require.NotNil(t, saved.CandidateID)
	assert.Empty(t, saved.DuplicateReason)
	assert.Equal(t, 1, f.candidates.createCount())

	_, err = f.queue.ForceSave(context.Background(), items[0].ID)
	assert.ErrorIs(t, err, ErrNotDuplicate)
	assert.Equal(t, 1, f.candidates.createCount())
}

func TestForceSave_FailureKeepsDuplicate(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), Email: "dup@example.com"}}
	f.extractor.results["dup"] = models.ParsedCandidate{FullName: "Dup", Email: "dup@example.com"}

	items := f.queue.Enqueue([]UploadFile{pdfFile("dup")}, nil)
	f.start(t)
	f.waitIdle(t)

	f.candidates.mu.Lock()
	f.candidates.createErr = errors.New("db down")
	f.candidates.mu.Unlock()

	item, err := f.queue.ForceSave(context.Background(), items[0].ID)
	require.Error(t, err)
	assert.Equal(t, models.UploadDuplicate, item.Status)

	f.storage.mu.Lock()
	assert.Empty(t, f.storage.files)
	f.storage.mu.Unlock()
}

func TestDiscard_RefusedWhileForceSaving(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), Email: "dup@example.com"}}
	f.extractor.results["dup"] = models.ParsedCandidate{FullName: "Dup", Email: "dup@example.com"}

	items := f.queue.Enqueue([]UploadFile{pdfFile("dup")}, nil)
	f.start(t)
	f.waitIdle(t)

	var discardErr error
	f.storage.mu.Lock()
	f.storage.onSave = func() { discardErr = f.queue.Discard(items[0].ID) }
	f.storage.mu.Unlock()

	saved, err := f.queue.ForceSave(context.Background(), items[0].ID)
	require.NoError(t, err)
	assert.ErrorIs(t, discardErr, ErrItemBusy)
	assert.Equal(t, models.UploadSuccess, saved.Status)

	item, ok := f.queue.Get(items[0].ID)
	require.True(t, ok)
	assert.Equal(t, models.UploadSuccess, item.Status)
	assert.Equal(t, 1, f.candidates.createCount())
}

func TestForceSave_UnknownItem(t *testing.T) {
	f := newQueueFixture(t, nil)

	_, err := f.queue.ForceSave(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDiscard(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), Email: "dup@example.com"}}
	f.extractor.results["dup"] = models.ParsedCandidate{FullName: "Dup", Email: "dup@example.com"}
	f.extractor.results["ok"] = models.ParsedCandidate{FullName: "Fresh"}

	items := f.queue.Enqueue([]UploadFile{pdfFile("dup"), pdfFile("ok")}, nil)
	f.start(t)
	f.waitIdle(t)

	assert.ErrorIs(t, f.queue.Discard(items[1].ID), ErrNotDuplicate)
	require.NoError(t, f.queue.Discard(items[0].ID))
	assert.ErrorIs(t, f.queue.Discard(items[0].ID), ErrItemNotFound)

	remaining := f.queue.Snapshot()
	require.Len(t, remaining, 1)
	assert.Equal(t, items[1].ID, remaining[0].ID)
	assert.Equal(t, 1, f.candidates.createCount())
}

func TestClearCompleted_KeepsIdleItems(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.candidates = []models.Candidate{{ID: uuid.New(), Email: "dup@example.com"}}
	f.extractor.results["ok"] = models.ParsedCandidate{FullName: "Fine"}
	f.extractor.results["dup"] = models.ParsedCandidate{FullName: "Dup", Email: "dup@example.com"}
	f.extractor.errs["bad"] = errors.New("boom")

	f.queue.Enqueue([]UploadFile{pdfFile("ok"), pdfFile("dup"), pdfFile("bad")}, nil)
	f.start(t)
	f.waitIdle(t)

	// Stop the worker so the next item stays IDLE.
	f.queue.Stop()
	pending := f.queue.Enqueue([]UploadFile{pdfFile("pending")}, nil)

	assert.Equal(t, 3, f.queue.ClearCompleted())
	remaining := f.queue.Snapshot()
	require.Len(t, remaining, 1)
	assert.Equal(t, pending[0].ID, remaining[0].ID)
	assert.Equal(t, models.UploadIdle, remaining[0].Status)
}

func TestClear_RemovesEverything(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.queue.Enqueue([]UploadFile{pdfFile("a"), pdfFile("b")}, nil)

	assert.Equal(t, 2, f.queue.Clear())
	assert.Empty(t, f.queue.Snapshot())
	assert.Equal(t, 0, f.queue.Clear())
}

func TestQueue_TargetJobCreatesApplicationWithFit(t *testing.T) {
	f := newQueueFixture(t, nil)
	job := models.Job{ID: uuid.New(), Title: "Backend Engineer", Requirements: []string{"Go"}}
	f.jobs.jobs[job.ID] = job
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "Linus", Skills: []string{"Go"}}

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, &job.ID)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	require.Equal(t, models.UploadSuccess, item.Status)
	require.NotNil(t, item.Fit)
	assert.Equal(t, 72, item.Fit.Score)

	apps := f.apps.all()
	require.Len(t, apps, 1)
	assert.Equal(t, job.ID, apps[0].JobID)
	assert.Equal(t, *item.CandidateID, apps[0].CandidateID)
	assert.Equal(t, models.ApplicationNew, apps[0].Status)
	require.NotNil(t, apps[0].FitScore)
	assert.Equal(t, 72, *apps[0].FitScore)
}

func TestQueue_FitFailureIsSwallowed(t *testing.T) {
	f := newQueueFixture(t, nil)
	job := models.Job{ID: uuid.New(), Title: "Designer"}
	f.jobs.jobs[job.ID] = job
	f.scorer.err = errors.New("scoring unavailable")
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "Dieter"}

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, &job.ID)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadSuccess, item.Status)
	assert.Nil(t, item.Fit)

	apps := f.apps.all()
	require.Len(t, apps, 1)
	assert.Nil(t, apps[0].FitScore)
}

func TestQueue_UnknownJobSkipsScoringAndApplication(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "Orphan"}
	missing := uuid.New()

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, &missing)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadSuccess, item.Status)
	assert.Nil(t, item.Fit)
	assert.Empty(t, f.apps.all())
	f.scorer.mu.Lock()
	assert.Equal(t, 0, f.scorer.calls)
	f.scorer.mu.Unlock()
}

func TestQueue_CandidateWriteFailureMarksError(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.candidates.createErr = errors.New("unique violation")
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "Nope"}

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, nil)
	f.start(t)
	f.waitIdle(t)

	item := f.queue.Snapshot()[0]
	assert.Equal(t, models.UploadError, item.Status)
	assert.Contains(t, item.ErrorMessage, "unique violation")

	f.storage.mu.Lock()
	assert.Empty(t, f.storage.files)
	assert.Len(t, f.storage.deleted, 1)
	f.storage.mu.Unlock()
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	f := newQueueFixture(t, nil)
	f.extractor.results["cv"] = models.ParsedCandidate{FullName: "Watcher"}

	var mu sync.Mutex
	var statuses []models.UploadStatus
	unsubscribe := f.queue.Subscribe(func(ev QueueEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Kind == EventUpdated {
			statuses = append(statuses, ev.Item.Status)
		}
	})
	defer unsubscribe()

	f.queue.Enqueue([]UploadFile{pdfFile("cv")}, nil)
	f.start(t)
	f.waitIdle(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.UploadStatus{models.UploadIdle, models.UploadProcessing, models.UploadSuccess}, statuses)
}
