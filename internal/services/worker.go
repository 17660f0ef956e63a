package services

import (
	"context"
	"log"
)

// Start implements UploadQueue. It launches the single worker that drains
// the queue; the worker sleeps until Enqueue wakes it.
func (q *uploadQueue) Start(ctx context.Context) {
	log.Println("🚀 Starting upload queue worker")

	q.wg.Add(1)
	go q.run(ctx)

	// Pick up anything enqueued before Start.
	q.signal()
}

// Stop implements UploadQueue. The item being processed, if any, finishes
// first.
func (q *uploadQueue) Stop() {
	q.stopOnce.Do(func() {
		log.Println("🛑 Stopping upload queue worker...")
		close(q.stopChan)
	})
	q.wg.Wait()
	log.Println("✅ Upload queue worker stopped")
}

func (q *uploadQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *uploadQueue) run(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopChan:
			return
		case <-ctx.Done():
			return
		case <-q.wake:
			q.drain(ctx)
		}
	}
}

// drain processes IDLE items in enqueue order until none is left. Finishing
// an item immediately attempts the next one.
func (q *uploadQueue) drain(ctx context.Context) {
	for {
		select {
		case <-q.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		entry := q.claimNext()
		if entry == nil {
			return
		}

		q.runMu.Lock()
		q.process(ctx, entry)
		q.runMu.Unlock()
	}
}
