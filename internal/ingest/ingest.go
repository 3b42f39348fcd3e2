// Package ingest orchestrates the image ingestion pipeline: it parses
// an HTML fragment, fetches every referenced image, classifies and
// measures it, persists a deduplicated tenant-scoped record, and emits
// an HTML embed per stored image.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/vladimirnetworks/webcite/internal/classify"
	"github.com/vladimirnetworks/webcite/internal/config"
	"github.com/vladimirnetworks/webcite/internal/fetcher"
	"github.com/vladimirnetworks/webcite/internal/imagemeta"
	"github.com/vladimirnetworks/webcite/internal/render"
	"github.com/vladimirnetworks/webcite/internal/slug"
	"github.com/vladimirnetworks/webcite/internal/storage"
	"github.com/vladimirnetworks/webcite/internal/urlres"
	"github.com/vladimirnetworks/webcite/pkg/types"
)

// Ingestor drives the per-image pipeline for one tenant namespace.
type Ingestor struct {
	tenant     string
	fetch      *fetcher.Client
	classifier *classify.Classifier
	alloc      *storage.Allocator
	media      *storage.FileMediaStore
	logger     *slog.Logger

	concurrency int
	queueSize   int
}

// New builds an ingestor from configuration. The asset store is an
// external collaborator and is injected; tenant identity is supplied by
// the caller, never derived here.
func New(cfg config.Config, store storage.AssetStore, tenant string) (*Ingestor, error) {
	if store == nil {
		return nil, errors.New("asset store is required")
	}
	if strings.TrimSpace(tenant) == "" {
		return nil, errors.New("tenant is required")
	}
	logger, err := BuildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	var limiter *fetcher.HostLimiter
	if cfg.Fetch.PerHostDelay.Duration > 0 || cfg.Fetch.RateLimitPerHost.Requests > 0 {
		limiter = fetcher.NewHostLimiter(cfg.Fetch.PerHostDelay.Duration, fetcher.RateLimiterSettings{
			Requests: cfg.Fetch.RateLimitPerHost.Requests,
			Window:   cfg.Fetch.RateLimitPerHost.Window.Duration,
		})
	}
	client := fetcher.New(fetcher.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		ConnectTimeout: cfg.Fetch.ConnectTimeout.Duration,
		RequestTimeout: cfg.Fetch.RequestTimeout.Duration,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		Limiter:        limiter,
	})

	var media *storage.FileMediaStore
	if cfg.Media.Enabled {
		media, err = storage.NewFileMediaStore(cfg.Media.Directory)
		if err != nil {
			return nil, fmt.Errorf("media store: %w", err)
		}
	}

	concurrency := cfg.Ingest.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := cfg.Ingest.QueueSize
	if queueSize <= 0 {
		queueSize = concurrency
	}

	return &Ingestor{
		tenant:      tenant,
		fetch:       client,
		classifier:  classify.New(classify.Options{MinBodyBytes: cfg.Fetch.MinBodyBytes}),
		alloc:       storage.NewAllocator(store, cfg.Ingest.MaxPathAttempts, logger),
		media:       media,
		logger:      logger,
		concurrency: concurrency,
		queueSize:   queueSize,
	}, nil
}

// Failure records one image the pipeline skipped and why.
type Failure struct {
	Src string
	Err error
}

// Result aggregates a single ingestion call.
type Result struct {
	Embeds   []string
	Failures []Failure
}

// Ingest processes every <img> in the fragment and returns the embeds
// for the images that were stored, in document order. Per-image
// failures are logged and skipped; the only returned error is an
// invalid base URL, surfaced before any per-image work begins.
func (in *Ingestor) Ingest(ctx context.Context, fragment, baseURL, fallbackTitle string) ([]string, error) {
	res, err := in.IngestAll(ctx, fragment, baseURL, fallbackTitle)
	if err != nil {
		return nil, err
	}
	return res.Embeds, nil
}

// IngestAll is Ingest with the per-image failures reported alongside
// the embeds.
func (in *Ingestor) IngestAll(ctx context.Context, fragment, baseURL, fallbackTitle string) (Result, error) {
	base, err := urlres.ParseBase(baseURL)
	if err != nil {
		return Result{}, err
	}

	imgs, err := extractImages(fragment)
	if err != nil {
		return Result{}, fmt.Errorf("parse fragment: %w", err)
	}
	if len(imgs) == 0 {
		return Result{}, nil
	}

	embeds := make([]string, len(imgs))
	failures := make([]error, len(imgs))

	if in.concurrency == 1 {
		for i, img := range imgs {
			if ctx.Err() != nil {
				failures[i] = ctx.Err()
				continue
			}
			embeds[i], failures[i] = in.processImage(context.WithoutCancel(ctx), base, img, fallbackTitle)
		}
	} else {
		if err := in.processParallel(ctx, base, imgs, fallbackTitle, embeds, failures); err != nil {
			return Result{}, err
		}
	}

	var res Result
	for i, img := range imgs {
		if failures[i] != nil {
			in.logger.Warn("image skipped",
				"tenant", in.tenant, "src", img.src, "error", failures[i])
			res.Failures = append(res.Failures, Failure{Src: img.src, Err: failures[i]})
			continue
		}
		res.Embeds = append(res.Embeds, embeds[i])
	}
	return res, nil
}

// processParallel runs fetch/classify/measure across images on a
// bounded pool. Cancelling ctx stops scheduling new images; in-flight
// work finishes or times out on its own. Persistence stays serialized
// per tenant inside the allocator.
func (in *Ingestor) processParallel(ctx context.Context, base urlres.Base, imgs []imgTag, fallbackTitle string, embeds []string, failures []error) error {
	pool, err := newWorkerPool(context.WithoutCancel(ctx), in.concurrency, in.queueSize)
	if err != nil {
		return err
	}
	defer pool.close()

	var wg sync.WaitGroup
	for i, img := range imgs {
		i, img := i, img
		wg.Add(1)
		submitErr := pool.submit(ctx, func(jobCtx context.Context) {
			defer wg.Done()
			embeds[i], failures[i] = in.processImage(jobCtx, base, img, fallbackTitle)
		})
		if submitErr != nil {
			wg.Done()
			failures[i] = submitErr
			for j := i + 1; j < len(imgs); j++ {
				failures[j] = submitErr
			}
			break
		}
	}
	wg.Wait()
	return nil
}

// processImage runs the full pipeline for one <img> element.
func (in *Ingestor) processImage(ctx context.Context, base urlres.Base, img imgTag, fallbackTitle string) (string, error) {
	imgURL := base.Resolve(img.src)
	req := in.fetch.NewRequest(imgURL)

	hops, err := req.ProbeHeaders(ctx)
	if err != nil {
		return "", err
	}
	if len(hops) == 0 {
		return "", &types.RejectedError{}
	}
	originSize := req.ContentLength()

	kind, err := in.classifier.Classify(hops[len(hops)-1])
	if err != nil {
		return "", err
	}
	if err := in.classifier.CheckSize(originSize); err != nil {
		return "", err
	}

	title := fallbackTitle
	if img.hasAlt {
		title = img.alt
	}
	if img.hasTitle {
		title = img.title
	}

	body, err := req.FetchBody(ctx)
	if err != nil {
		return "", err
	}
	if err := in.classifier.CheckSize(int64(len(body))); err != nil {
		return "", err
	}

	width, height, err := imagemeta.Measure(body, kind)
	if err != nil {
		return "", err
	}

	if in.media != nil {
		if _, err := in.media.SaveBytes(ctx, body, kind.Extension()); err != nil {
			in.logger.Warn("media cache write failed", "url", req.URL(), "error", err)
		}
	}

	if originSize < 0 {
		originSize = req.ContentLength()
	}

	asset, err := in.alloc.Insert(ctx, types.ImageAsset{
		Tenant:     in.tenant,
		Path:       slug.Make(title) + "." + kind.Extension(),
		OriginURL:  req.URL(),
		OriginType: kind.MIME(),
		OriginSize: originSize,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return "", err
	}

	in.logger.Info("image stored",
		"tenant", asset.Tenant, "path", asset.Path,
		"origin", asset.OriginURL, "width", asset.Width, "height", asset.Height)
	return render.Embed(asset), nil
}

type imgTag struct {
	src      string
	title    string
	alt      string
	hasTitle bool
	hasAlt   bool
}

// extractImages returns every <img> element of the fragment in document
// order, with the attributes the pipeline cares about.
func extractImages(fragment string) ([]imgTag, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var imgs []imgTag
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		tag := imgTag{src: src}
		tag.title, tag.hasTitle = sel.Attr("title")
		tag.alt, tag.hasAlt = sel.Attr("alt")
		imgs = append(imgs, tag)
	})
	return imgs, nil
}
