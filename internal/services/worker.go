package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

// UploadFile is one file of a batch upload. ReadErr records a file that
// could not be read from the request.
type UploadFile struct {
	Filename string
	Content  []byte
	ReadErr  error
}

// BatchProcessor ingests many CVs with bounded concurrency. Every file gets
// its own outcome and one failure never aborts the others.
type BatchProcessor interface {
	Process(ctx context.Context, files []UploadFile) models.BatchUploadResponse
}

type batchProcessor struct {
	ingestion   IngestionService
	concurrency int
	logger      *slog.Logger
}

func NewBatchProcessor(ingestion IngestionService, concurrency int, logger *slog.Logger) BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &batchProcessor{
		ingestion:   ingestion,
		concurrency: concurrency,
		logger:      logger.With("component", "batch"),
	}
}

type batchJob struct {
	index int
	file  UploadFile
}

type batchOutcome struct {
	result *models.UploadResponse
	err    error
}

// Process returns successes and failures in upload order.
func (b *batchProcessor) Process(ctx context.Context, files []UploadFile) models.BatchUploadResponse {
	outcomes := make([]batchOutcome, len(files))
	jobs := make(chan batchJob)

	var wg sync.WaitGroup
	for i := 0; i < min(b.concurrency, len(files)); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				outcomes[job.index] = b.processOne(ctx, workerID, job.file)
			}
		}(i + 1)
	}

	for i, file := range files {
		select {
		case jobs <- batchJob{index: i, file: file}:
		case <-ctx.Done():
			outcomes[i] = batchOutcome{err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	resp := models.BatchUploadResponse{
		SuccessfulUploads: []models.UploadResponse{},
		FailedUploads:     []models.FailedUpload{},
	}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			resp.FailedUploads = append(resp.FailedUploads, models.FailedUpload{
				Filename: files[i].Filename,
				Error:    outcome.err.Error(),
			})
			continue
		}
		resp.SuccessfulUploads = append(resp.SuccessfulUploads, *outcome.result)
	}

	b.logger.Info("batch processed",
		"files", len(files),
		"succeeded", len(resp.SuccessfulUploads),
		"failed", len(resp.FailedUploads))
	return resp
}

func (b *batchProcessor) processOne(ctx context.Context, workerID int, file UploadFile) (outcome batchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("ingestion panicked", "worker", workerID, "file", file.Filename, "panic", r)
			outcome = batchOutcome{err: fmt.Errorf("internal error while processing %s", file.Filename)}
		}
	}()

	if file.ReadErr != nil {
		return batchOutcome{err: file.ReadErr}
	}
	if err := ctx.Err(); err != nil {
		return batchOutcome{err: err}
	}

	b.logger.Debug("processing file", "worker", workerID, "file", file.Filename)
	result, err := b.ingestion.IngestCV(ctx, file.Filename, file.Content)
	if err != nil {
		b.logger.Warn("file failed", "worker", workerID, "file", file.Filename, "err", err)
		return batchOutcome{err: err}
	}
	return batchOutcome{result: result}
}
