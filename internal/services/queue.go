package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/talent-intake/internal/models"
	"alfredoptarigan/talent-intake/internal/repositories"
)

var (
	ErrItemNotFound = errors.New("upload item not found")
	ErrNotDuplicate = errors.New("upload item is not awaiting a duplicate decision")
	ErrItemBusy     = errors.New("upload item is being saved")
)

// UploadFile is one submitted file. Its bytes are never modified.
type UploadFile struct {
	Name     string
	MimeType string
	Data     []byte
}

type QueueEventKind string

const (
	EventUpdated QueueEventKind = "updated"
	EventRemoved QueueEventKind = "removed"
)

type QueueEvent struct {
	Kind QueueEventKind
	Item models.UploadItem
}

// Listener receives queue changes. It is called synchronously from the
// goroutine that made the change and must not block.
type Listener func(event QueueEvent)

// UploadQueue turns uploaded CVs into candidates one file at a time.
type UploadQueue interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(files []UploadFile, targetJobID *uuid.UUID) []models.UploadItem
	Snapshot() []models.UploadItem
	Get(id uuid.UUID) (models.UploadItem, bool)
	ForceSave(ctx context.Context, id uuid.UUID) (models.UploadItem, error)
	Discard(id uuid.UUID) error
	Clear() int
	ClearCompleted() int
	Subscribe(listener Listener) (unsubscribe func())
	WaitIdle(ctx context.Context) error
}

type queueEntry struct {
	item   models.UploadItem
	source UploadFile
	// parsed is kept while the item waits on a duplicate decision.
	parsed *models.ParsedCandidate
	// saving is set while a force save is writing the candidate.
	saving bool
}

type uploadQueue struct {
	images        ImageTransformer
	extractor     CVExtractor
	scorer        FitScorer
	candidateRepo repositories.CandidateRepository
	jobRepo       repositories.JobRepository
	appRepo       repositories.ApplicationRepository
	storage       StorageService
	index         CandidateIndex

	mu      sync.Mutex
	entries []*queueEntry

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	// runMu serialises pipeline runs and force saves.
	runMu sync.Mutex

	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	now func() time.Time
}

// NewUploadQueue wires the queue. index may be nil to disable semantic
// indexing of saved candidates.
func NewUploadQueue(
	images ImageTransformer,
	extractor CVExtractor,
	scorer FitScorer,
	candidateRepo repositories.CandidateRepository,
	jobRepo repositories.JobRepository,
	appRepo repositories.ApplicationRepository,
	storage StorageService,
	index CandidateIndex,
) UploadQueue {
	return &uploadQueue{
		images:        images,
		extractor:     extractor,
		scorer:        scorer,
		candidateRepo: candidateRepo,
		jobRepo:       jobRepo,
		appRepo:       appRepo,
		storage:       storage,
		index:         index,
		listeners:     make(map[int]Listener),
		wake:          make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		now:           time.Now,
	}
}

// Enqueue implements UploadQueue. Every file becomes its own IDLE item,
// even when the same file is submitted twice.
func (q *uploadQueue) Enqueue(files []UploadFile, targetJobID *uuid.UUID) []models.UploadItem {
	if len(files) == 0 {
		return []models.UploadItem{}
	}

	now := q.now()
	created := make([]models.UploadItem, 0, len(files))

	q.mu.Lock()
	for _, f := range files {
		entry := &queueEntry{
			item: models.UploadItem{
				ID:          uuid.New(),
				FileName:    f.Name,
				MimeType:    f.MimeType,
				Size:        len(f.Data),
				TargetJobID: copyID(targetJobID),
				Status:      models.UploadIdle,
				EnqueuedAt:  now,
				UpdatedAt:   now,
			},
			source: f,
		}
		q.entries = append(q.entries, entry)
		created = append(created, entry.item)
	}
	q.mu.Unlock()

	for _, item := range created {
		log.Printf("📥 Upload %s (%s) enqueued\n", item.ID, item.FileName)
		q.notify(QueueEvent{Kind: EventUpdated, Item: item})
	}

	q.signal()
	return created
}

// Snapshot implements UploadQueue. Items are returned in enqueue order.
func (q *uploadQueue) Snapshot() []models.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]models.UploadItem, len(q.entries))
	for i, e := range q.entries {
		items[i] = e.item
	}
	return items
}

// Get implements UploadQueue.
func (q *uploadQueue) Get(id uuid.UUID) (models.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e := q.find(id); e != nil {
		return e.item, true
	}
	return models.UploadItem{}, false
}

// ForceSave implements UploadQueue. It persists a DUPLICATE item's parsed
// candidate regardless of the collision and marks it SUCCESS. A failed save
// leaves the item DUPLICATE so the decision can be retried.
func (q *uploadQueue) ForceSave(ctx context.Context, id uuid.UUID) (models.UploadItem, error) {
	q.runMu.Lock()
	defer q.runMu.Unlock()

	q.mu.Lock()
	entry := q.find(id)
	if entry == nil {
		q.mu.Unlock()
		return models.UploadItem{}, ErrItemNotFound
	}
	if entry.item.Status != models.UploadDuplicate || entry.parsed == nil {
		item := entry.item
		q.mu.Unlock()
		return item, ErrNotDuplicate
	}
	parsed := entry.parsed
	entry.saving = true
	targetJobID := copyID(entry.item.TargetJobID)
	stashedFit := entry.item.Fit
	reason := entry.item.DuplicateReason
	q.mu.Unlock()

	log.Printf("💾 Force saving upload %s despite duplicate (%s)\n", id, reason)

	job := q.resolveJob(targetJobID)
	fit := q.scoreFit(ctx, *parsed, job)
	if fit == nil {
		fit = stashedFit
	}

	candidateID, err := q.persist(ctx, parsed, fit, job)
	if err != nil {
		log.Printf("❌ Force save of upload %s failed: %v\n", id, err)
		q.mu.Lock()
		entry.saving = false
		item := entry.item
		q.mu.Unlock()
		return item, err
	}

	item := q.transition(entry, func(it *models.UploadItem) {
		it.Status = models.UploadSuccess
		it.CandidateID = &candidateID
		it.Fit = fit
		it.DuplicateReason = ""
	})
	q.mu.Lock()
	entry.parsed = nil
	entry.saving = false
	q.mu.Unlock()

	log.Printf("✅ Upload %s force saved as candidate %s\n", id, candidateID)
	return item, nil
}

// Discard implements UploadQueue. Only DUPLICATE items can be discarded, and
// not while a force save of the same item is in flight.
func (q *uploadQueue) Discard(id uuid.UUID) error {
	q.mu.Lock()
	entry := q.find(id)
	if entry == nil {
		q.mu.Unlock()
		return ErrItemNotFound
	}
	if entry.saving {
		q.mu.Unlock()
		return ErrItemBusy
	}
	if entry.item.Status != models.UploadDuplicate {
		q.mu.Unlock()
		return ErrNotDuplicate
	}
	removed := q.removeWhere(func(e *queueEntry) bool { return e == entry })
	q.mu.Unlock()

	log.Printf("🗑️  Upload %s discarded\n", id)
	q.notifyRemoved(removed)
	return nil
}

// Clear implements UploadQueue. An item that is being processed still runs
// to completion but is no longer reported.
func (q *uploadQueue) Clear() int {
	q.mu.Lock()
	removed := q.removeWhere(func(*queueEntry) bool { return true })
	q.mu.Unlock()

	q.notifyRemoved(removed)
	return len(removed)
}

// ClearCompleted implements UploadQueue. IDLE and PROCESSING items are kept.
func (q *uploadQueue) ClearCompleted() int {
	q.mu.Lock()
	removed := q.removeWhere(func(e *queueEntry) bool { return e.item.Status.IsTerminal() })
	q.mu.Unlock()

	q.notifyRemoved(removed)
	return len(removed)
}

// Subscribe implements UploadQueue.
func (q *uploadQueue) Subscribe(listener Listener) func() {
	q.listenersMu.Lock()
	id := q.nextListener
	q.nextListener++
	q.listeners[id] = listener
	q.listenersMu.Unlock()

	return func() {
		q.listenersMu.Lock()
		delete(q.listeners, id)
		q.listenersMu.Unlock()
	}
}

// WaitIdle implements UploadQueue. It returns once no item is IDLE or
// PROCESSING.
func (q *uploadQueue) WaitIdle(ctx context.Context) error {
	settled := make(chan struct{}, 1)
	unsubscribe := q.Subscribe(func(QueueEvent) {
		if q.isSettled() {
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	for !q.isSettled() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settled:
		}
	}
	return nil
}

func (q *uploadQueue) isSettled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if !e.item.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// claimNext marks the earliest IDLE item PROCESSING, unless some item is
// already PROCESSING.
func (q *uploadQueue) claimNext() *queueEntry {
	q.mu.Lock()
	var next *queueEntry
	for _, e := range q.entries {
		if e.item.Status == models.UploadProcessing {
			q.mu.Unlock()
			return nil
		}
		if next == nil && e.item.Status == models.UploadIdle {
			next = e
		}
	}
	if next == nil {
		q.mu.Unlock()
		return nil
	}
	next.item.Status = models.UploadProcessing
	next.item.UpdatedAt = q.now()
	item := next.item
	q.mu.Unlock()

	q.notify(QueueEvent{Kind: EventUpdated, Item: item})
	return next
}

// transition applies mutate to the entry and notifies listeners if the entry
// is still queued.
func (q *uploadQueue) transition(entry *queueEntry, mutate func(*models.UploadItem)) models.UploadItem {
	q.mu.Lock()
	mutate(&entry.item)
	entry.item.UpdatedAt = q.now()
	item := entry.item
	queued := q.find(item.ID) == entry
	q.mu.Unlock()

	if queued {
		q.notify(QueueEvent{Kind: EventUpdated, Item: item})
	}
	return item
}

// find must be called with q.mu held.
func (q *uploadQueue) find(id uuid.UUID) *queueEntry {
	for _, e := range q.entries {
		if e.item.ID == id {
			return e
		}
	}
	return nil
}

// removeWhere must be called with q.mu held.
func (q *uploadQueue) removeWhere(match func(*queueEntry) bool) []models.UploadItem {
	var removed []models.UploadItem
	kept := q.entries[:0]
	for _, e := range q.entries {
		if match(e) {
			removed = append(removed, e.item)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = kept
	return removed
}

func (q *uploadQueue) notify(event QueueEvent) {
	q.listenersMu.Lock()
	listeners := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.listenersMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

func (q *uploadQueue) notifyRemoved(items []models.UploadItem) {
	for _, item := range items {
		q.notify(QueueEvent{Kind: EventRemoved, Item: item})
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
