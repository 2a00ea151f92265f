package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/omarcisse97/sopo/internal/config"
	"github.com/omarcisse97/sopo/internal/services"
	"github.com/omarcisse97/sopo/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeListingView    = "listing:view"
	TypeImageThumbnail = "image:thumbnail"
)

// Queues tasks are enqueued on.
const (
	QueueDefault = "default"
	QueueImages  = "images"
	QueueLow     = "low"
)

// --- Task Client (Enqueuing tasks) ---

func redisClientOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient creates an asynq client on the same Redis as rdb.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisClientOpt(rdb))
}

// ListingViewPayload is the payload of TypeListingView.
type ListingViewPayload struct {
	ListingID int64 `json:"listing_id"`
}

// NewListingViewTask builds a view increment task.
func NewListingViewTask(listingID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ListingViewPayload{ListingID: listingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeListingView, payload, asynq.Queue(QueueLow), asynq.MaxRetry(0)), nil
}

// ImageThumbnailPayload is the payload of TypeImageThumbnail. Index is the
// 1-based position of the image within its listing.
type ImageThumbnailPayload struct {
	ListingID int64  `json:"listing_id"`
	ImageKey  string `json:"image_key"`
	Index     int    `json:"index"`
}

// NewImageThumbnailTask builds a thumbnail task for one uploaded image.
func NewImageThumbnailTask(listingID int64, imageKey string, index int) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageThumbnailPayload{ListingID: listingID, ImageKey: imageKey, Index: index})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeImageThumbnail, payload,
		asynq.Queue(QueueImages),
		asynq.MaxRetry(3),
		asynq.TaskID(fmt.Sprintf("thumb:%d:%d", listingID, index)),
	), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	listingService services.IListingService
	imageStorage   storage.IImageStorage
}

func NewTaskProcessor(cfg *config.Config, listingService services.IListingService, imageStorage storage.IImageStorage) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		listingService: listingService,
		imageStorage:   imageStorage,
	}
}

// SetupServer configures an asynq server and the handlers of the enabled
// worker kinds. It returns nil when neither kind is enabled. The caller starts
// and shuts down the server.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		fmt.Println("Running in API mode, no task server started.")
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()

	if isBgWorker {
		queues[QueueDefault] = 3
		queues[QueueLow] = 1
		mux.HandleFunc(TypeListingView, processor.HandleListingViewTask)
		fmt.Println("Registered background task handlers.")
	}

	if isImageWorker {
		queues[QueueImages] = 5
		mux.HandleFunc(TypeImageThumbnail, processor.HandleImageThumbnailTask)
		fmt.Println("Registered image processing task handlers.")
	}

	srv := asynq.NewServer(
		redisClientOpt(rdb),
		asynq.Config{
			Queues: queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)
	return srv, mux
}

// --- Task Handlers ---

// HandleListingViewTask adds one view to a listing. Failures are logged and never retried.
func (p *TaskProcessor) HandleListingViewTask(ctx context.Context, t *asynq.Task) error {
	var payload ListingViewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal view task payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.listingService.IncrementViews(ctx, payload.ListingID); err != nil {
		log.Printf("Error incrementing views of listing %d: %v", payload.ListingID, err)
		return fmt.Errorf("view increment failed: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// HandleImageThumbnailTask stores a JPEG thumbnail next to an uploaded image.
// An existing thumbnail means the work is already done.
func (p *TaskProcessor) HandleImageThumbnailTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal thumbnail task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ImageKey == "" || payload.Index < 1 {
		return fmt.Errorf("invalid thumbnail payload %+v: %w", payload, asynq.SkipRetry)
	}

	thumbKey := storage.ListingThumbKey(payload.ListingID, payload.Index)
	log.Printf("Processing thumbnail task: Image=%s, Thumb=%s", payload.ImageKey, thumbKey)

	body, _, err := p.imageStorage.GetObject(ctx, payload.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("Image %s not found, likely cleaned up after a failed upload.", payload.ImageKey)
			return fmt.Errorf("image not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image %s: %w", payload.ImageKey, err)
	}
	defer body.Close()

	maxSizeBytes := p.cfg.ImageMaxSizeBytes()
	imgData, err := io.ReadAll(io.LimitReader(body, maxSizeBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", payload.ImageKey, err)
	}
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d bytes). Skipping.", payload.ImageKey, maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image %s: %v", payload.ImageKey, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	dim := uint(p.cfg.ImageThumbMaxDimension)
	thumb := resize.Thumbnail(dim, dim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode thumbnail of %s: %w", payload.ImageKey, err)
	}

	err = p.imageStorage.PutObject(ctx, thumbKey, "image/jpeg", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if errors.Is(err, storage.ErrObjectExists) {
		log.Printf("Thumbnail %s already exists.", thumbKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to upload thumbnail %s: %w", thumbKey, err)
	}

	log.Printf("Thumbnail task processed successfully: %s (%s %dx%d -> %dx%d)", thumbKey, format,
		img.Bounds().Dx(), img.Bounds().Dy(), thumb.Bounds().Dx(), thumb.Bounds().Dy())
	return nil
}
