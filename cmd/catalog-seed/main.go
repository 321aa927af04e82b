// Command catalog-seed bulk-creates products through the catalog service,
// so every row passes the same validation the editor applies.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catalog-editor/internal/backend"
	"github.com/xenking/catalog-editor/internal/catalog"
	"github.com/xenking/catalog-editor/internal/domain/product"
	"github.com/xenking/catalog-editor/internal/revalidate"
)

func main() {
	var (
		file        string
		cfg         backend.Config
		concurrency int
	)

	flag.StringVar(&file, "file", "products.json", "products JSON array (.json or .json.gz)")
	flag.StringVar(&cfg.BaseURL, "api-base-url", "", "product API base URL (or API_BASE_URL env)")
	flag.StringVar(&cfg.ProductsPath, "api-products-path", "", "product collection path (or API_PRODUCTS_PATH env)")
	flag.StringVar(&cfg.SecretKey, "api-secret-key", "", "bearer credential (or API_SECRET_KEY env)")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "timeout of a single product API call")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel create calls")
	flag.Parse()

	cfg.BaseURL = orEnv(cfg.BaseURL, "API_BASE_URL", "http://localhost:5002")
	cfg.ProductsPath = orEnv(cfg.ProductsPath, "API_PRODUCTS_PATH", "products")
	cfg.SecretKey = orEnv(cfg.SecretKey, "API_SECRET_KEY", "")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := backend.New(cfg)
	if err != nil {
		slog.Error("invalid product API configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	svc, err := catalog.NewService(client, revalidate.NewBroker(1))
	if err != nil {
		slog.Error("create catalog service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	candidates, err := readCandidates(file)
	if err != nil {
		slog.Error("read seed file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	stats, err := seed(ctx, svc, candidates, concurrency)
	slog.Info("seed finished",
		slog.Int("created", stats.created),
		slog.Int("rejected", stats.rejected),
	)
	if err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if stats.rejected > 0 {
		os.Exit(2)
	}
}

func orEnv(v, env, def string) string {
	if v != "" {
		return v
	}
	if e := os.Getenv(env); e != "" {
		return e
	}
	return def
}

// readCandidates loads a JSON array of products; files ending in .gz are
// decompressed first.
func readCandidates(path string) ([]product.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return product.DecodeCandidates(data)
}

type seedStats struct {
	created  int
	rejected int
}

// Creator is the part of the catalog service the seeder needs.
type Creator interface {
	CreateProduct(ctx context.Context, c product.Candidate) catalog.Result[product.Product]
}

// seed creates every candidate with at most concurrency calls in flight.
// Rejected rows are logged and counted; an unreachable product API aborts
// the run.
func seed(ctx context.Context, svc Creator, candidates []product.Candidate, concurrency int) (seedStats, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	var created, rejected atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			res := svc.CreateProduct(ctx, c)
			switch {
			case res.Success:
				created.Add(1)
				return nil
			case res.Kind == catalog.KindTransport:
				return errors.Wrapf(res.Err(), "row %d", i)
			default:
				rejected.Add(1)
				slog.Warn("product rejected",
					slog.Int("row", i),
					slog.String("name", c.Name),
					slog.String("error", res.Error),
				)
				return nil
			}
		})
	}
	err := g.Wait()

	return seedStats{created: int(created.Load()), rejected: int(rejected.Load())}, err
}
