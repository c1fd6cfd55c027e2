// Command enqueue pushes an OCR request envelope onto the input queue. It is
// an operator tool for smoke-testing a deployment end to end.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/infra"
	"github.com/alexberardi/jarvis-ocr-service/internal/queue"
	"github.com/alexberardi/jarvis-ocr-service/internal/schema"
)

func main() {
	var (
		fileFlag    string
		imageFlag   string
		kindFlag    string
		replyToFlag string
		langFlag    string
	)

	flag.StringVar(&fileFlag, "file", "", "path to a complete request envelope JSON (use - for stdin)")
	flag.StringVar(&imageFlag, "image", "", "image reference value to build a single-image envelope from")
	flag.StringVar(&kindFlag, "kind", "local_path", "image reference kind (local_path, s3, minio, db)")
	flag.StringVar(&replyToFlag, "reply-to", "ocr.smoke.replies", "reply queue for the built envelope")
	flag.StringVar(&langFlag, "language", "", "optional language hint")
	flag.Parse()

	if fileFlag == "" && imageFlag == "" {
		exitWithError(errors.New("either -file or -image must be provided"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}

	raw, err := loadEnvelope(fileFlag, imageFlag, kindFlag, replyToFlag, langFlag)
	if err != nil {
		exitWithError(err)
	}

	// Reject anything the worker would bounce; no point queueing it.
	env, err := schema.DecodeRequest(raw)
	if err != nil {
		exitWithError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		exitWithError(err)
	}
	defer rdb.Close()

	if err := queue.New(rdb).Push(ctx, domain.InputQueue, env); err != nil {
		exitWithError(err)
	}
	fmt.Printf("enqueued job %s (%d images) on %s\n", env.JobID, env.Payload.ImageCount, domain.InputQueue)
}

func loadEnvelope(file, image, kind, replyTo, language string) ([]byte, error) {
	if file != "" {
		if file == "-" {
			return io.ReadAll(os.Stdin)
		}
		return os.ReadFile(file)
	}

	env := domain.JobEnvelope{
		SchemaVersion: domain.SchemaVersion,
		JobID:         uuid.NewString(),
		WorkflowID:    uuid.NewString(),
		JobType:       domain.JobTypeOCRRequest,
		Source:        "enqueue-cli",
		Target:        domain.ServiceSource,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Attempt:       1,
		ReplyTo:       replyTo,
		Payload: domain.RequestPayload{
			ImageCount: 1,
			ImageRefs: []domain.ImageRef{{
				Kind:  domain.RefKind(strings.TrimSpace(kind)),
				Value: image,
				Index: 0,
			}},
		},
	}
	if language != "" {
		env.Payload.Options = &domain.RequestOptions{Language: language}
	}
	return json.Marshal(env)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
