package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/omarcisse97/sopo/internal/services"
)

const dispatchTimeout = 5 * time.Second

// IAsynqClient is the enqueueing side of *asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ViewDispatcher records listing views without blocking the caller.
// Without a client the increment runs directly against the listing service.
type ViewDispatcher struct {
	client   IAsynqClient // optional
	listings services.IListingService
	wg       sync.WaitGroup
}

func NewViewDispatcher(client IAsynqClient, listings services.IListingService) *ViewDispatcher {
	return &ViewDispatcher{client: client, listings: listings}
}

// RecordView dispatches a view increment and returns immediately.
func (d *ViewDispatcher) RecordView(listingID int64) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		d.dispatch(ctx, listingID)
	}()
}

// Wait blocks until every dispatched view has been handed off.
func (d *ViewDispatcher) Wait() {
	d.wg.Wait()
}

func (d *ViewDispatcher) dispatch(ctx context.Context, listingID int64) {
	if d.client == nil {
		if err := d.listings.IncrementViews(ctx, listingID); err != nil {
			log.Printf("Error incrementing views of listing %d: %v", listingID, err)
		}
		return
	}

	task, err := NewListingViewTask(listingID)
	if err != nil {
		log.Printf("Error creating view task for listing %d: %v", listingID, err)
		return
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		log.Printf("Error enqueueing view task for listing %d: %v", listingID, err)
	}
}

// ThumbnailScheduler enqueues one thumbnail task per uploaded image.
type ThumbnailScheduler struct {
	client IAsynqClient
}

func NewThumbnailScheduler(client IAsynqClient) *ThumbnailScheduler {
	return &ThumbnailScheduler{client: client}
}

// ScheduleThumbnails is best effort; enqueue failures are logged only.
func (s *ThumbnailScheduler) ScheduleThumbnails(ctx context.Context, listingID int64, imageKeys []string) {
	for i, key := range imageKeys {
		task, err := NewImageThumbnailTask(listingID, key, i+1)
		if err != nil {
			log.Printf("Error creating thumbnail task for %s: %v", key, err)
			continue
		}
		_, err = s.client.EnqueueContext(ctx, task)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf("Error enqueueing thumbnail task for %s: %v", key, err)
		}
	}
}

var _ services.ThumbnailScheduler = (*ThumbnailScheduler)(nil)
