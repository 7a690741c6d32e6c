// Package main provides the text2video command-line client. It submits a
// prompt to the API, polls the task until it finishes and saves the video.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/maauso/text2video-api/internal/bootstrap"
	"github.com/maauso/text2video-api/internal/client"
	"github.com/maauso/text2video-api/internal/config"
	"github.com/maauso/text2video-api/internal/poller"
	"github.com/maauso/text2video-api/internal/storage"
)

// errUsage is returned for invalid command-line input.
var errUsage = errors.New("usage error")

type options struct {
	prompt     string
	model      string
	seconds    int
	aspect     string
	imagePath  string
	mode       string
	outDir     string
	toS3       bool
	noDownload bool
	listModels bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("text2video", flag.ContinueOnError)
	fs.StringVar(&opts.prompt, "prompt", "", "text prompt describing the video (required)")
	fs.StringVar(&opts.model, "model", "", "model ID, see -models")
	fs.IntVar(&opts.seconds, "seconds", 5, "video duration in seconds")
	fs.StringVar(&opts.aspect, "aspect", "16:9", "aspect ratio: 16:9, 9:16 or 1:1")
	fs.StringVar(&opts.imagePath, "image", "", "optional image file used as the first frame")
	fs.StringVar(&opts.mode, "mode", "", "generation mode override for image requests")
	fs.StringVar(&opts.outDir, "out", "", "output directory (default $OUTPUT_DIR)")
	fs.BoolVar(&opts.toS3, "s3", false, "also upload the video to $S3_BUCKET")
	fs.BoolVar(&opts.noDownload, "no-download", false, "print the video URL without downloading it")
	fs.BoolVar(&opts.listModels, "models", false, "list available models and exit")

	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %w", errUsage, err)
	}
	if !opts.listModels && opts.prompt == "" {
		return opts, fmt.Errorf("%w: -prompt is required", errUsage)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.toS3 && !cfg.S3Enabled() {
		return fmt.Errorf("%w: -s3 requires S3_BUCKET", errUsage)
	}

	logger := cfg.NewLogger()

	deps, err := bootstrap.NewClientDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	if opts.listModels {
		return printModels(ctx, deps.API, stdout)
	}

	req := client.SubmitRequest{
		Prompt:         opts.prompt,
		Model:          opts.model,
		Seconds:        opts.seconds,
		AspectRatio:    opts.aspect,
		GenerationMode: opts.mode,
	}
	if opts.imagePath != "" {
		req.Image, err = imageDataURL(opts.imagePath)
		if err != nil {
			return err
		}
	}

	env, err := deps.API.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(stdout, "task %s submitted (model %s -> %s, %s)\n", env.ID, env.Model, env.UpstreamModel, env.GenerationMode)

	videoURL := env.VideoURL
	if videoURL == "" {
		p, err := poller.New(deps.API,
			poller.WithInterval(cfg.PollInterval),
			poller.WithMaxAttempts(cfg.PollMaxAttempts),
			poller.WithLogger(logger),
			poller.WithObserver(func(u poller.Update) {
				fmt.Fprintf(stdout, "[%d/%d] %3d%% %s\n", u.Attempt, cfg.PollMaxAttempts, u.Progress, u.Message)
			}),
		)
		if err != nil {
			return err
		}

		polling, err := p.Start(ctx, env.ID)
		if err != nil {
			return err
		}
		st, err := polling.Wait(ctx)
		if err != nil {
			return fmt.Errorf("task %s: %w", env.ID, err)
		}
		videoURL = st.VideoURL
	}
	fmt.Fprintf(stdout, "video ready: %s\n", videoURL)

	if opts.noDownload {
		return nil
	}

	path, err := download(ctx, deps, env.ID, videoURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved to %s\n", path)

	if opts.toS3 {
		location, err := upload(ctx, deps.Remote, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "uploaded to %s\n", location)
	}
	return nil
}

func printModels(ctx context.Context, api *client.Client, stdout io.Writer) error {
	list, err := api.Models(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Data {
		marker := " "
		if m.ID == list.Default {
			marker = "*"
		}
		fmt.Fprintf(stdout, "%s %-12s %-20s max %2ds image=%t\n", marker, m.ID, m.DisplayName, m.MaxDuration, m.SupportsImage)
	}
	return nil
}

// download streams the video into the local output directory.
func download(ctx context.Context, deps *bootstrap.ClientDependencies, taskID, videoURL string) (string, error) {
	pr, pw := io.Pipe()
	go func() {
		_, err := deps.API.Download(ctx, videoURL, pw)
		_ = pw.CloseWithError(err)
	}()

	path, err := deps.Local.Save(ctx, storage.VideoName(taskID), pr)
	_ = pr.CloseWithError(err)
	if err != nil {
		return "", fmt.Errorf("save video: %w", err)
	}
	return path, nil
}

func upload(ctx context.Context, remote storage.Archive, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path was just written by LocalStorage
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	location, err := remote.Save(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	return location, nil
}

// imageDataURL reads an image file and encodes it as a data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the user
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if mime != "image/png" && mime != "image/jpeg" && mime != "image/gif" && mime != "image/webp" {
		return "", fmt.Errorf("%w: %s is not a supported image (%s)", errUsage, path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
