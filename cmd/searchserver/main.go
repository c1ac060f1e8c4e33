package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/dedup"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/batch"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/paginator"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	configPath string
	corpusFile string
	policy     string
	pageSize   int
	dedup      bool
	batch      bool
	ingestFor  time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		slog.Error("search server failed", "error", err)
	}
	stop()
	os.Exit(apperrors.ExitCode(err))
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("searchserver", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.corpusFile, "corpus", "", "YAML corpus file; stdin then holds only queries")
	fs.StringVar(&opts.policy, "policy", "", "execution policy: sequential or parallel")
	fs.IntVar(&opts.pageSize, "page-size", 0, "results per printed page")
	fs.BoolVar(&opts.dedup, "dedup", false, "remove duplicate documents before searching")
	fs.BoolVar(&opts.batch, "batch", false, "run all queries concurrently and print results per query")
	fs.DurationVar(&opts.ingestFor, "ingest-for", 0, "consume the ingest topic for this long before searching")
	if err := fs.Parse(args); err != nil {
		return opts, apperrors.Newf(apperrors.ErrInvalidArgument, "flags: %v", err)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.corpusFile != "" {
		cfg.Search.CorpusFile = opts.corpusFile
	}
	if opts.policy != "" {
		cfg.Search.Policy = opts.policy
	}
	if opts.pageSize > 0 {
		cfg.Search.PageSize = opts.pageSize
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	policy, err := execution.ParsePolicy(cfg.Search.Policy)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	engine, err := indexer.NewEngine(cfg.Indexer)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	queries, err := loadDocuments(engine, cfg.Search.CorpusFile, stdin)
	if err != nil {
		return err
	}
	m.DocsIndexedTotal.Add(float64(engine.GetDocumentCount()))
	m.IndexDocumentCount.Set(float64(engine.GetDocumentCount()))
	slog.Info("corpus loaded",
		"documents", engine.GetDocumentCount(),
		"queries", len(queries),
		"policy", policy.String(),
	)

	agg := analytics.NewAggregator()
	sinks := teeSink{agg}

	if cfg.Kafka.Enabled {
		if opts.ingestFor > 0 {
			consumeIngest(ctx, cfg.Kafka, engine, m, agg, opts.ingestFor)
		}
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorOptions{})
		collector.Start(ctx)
		defer collector.Close()
		sinks = append(sinks, collector)
	}

	if opts.dedup {
		removed := dedup.RemoveDuplicates(engine, logger.WithComponent("dedup"))
		m.DuplicatesRemovedTotal.Add(float64(len(removed)))
		m.DocsRemovedTotal.Add(float64(len(removed)))
		m.IndexDocumentCount.Set(float64(engine.GetDocumentCount()))
	}

	store, closeStore, err := openStore(cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()
	searcher := &cachedSearcher{
		engine: engine,
		cache:  cache.New(store, cfg.Redis.CacheTTL, m),
		policy: policy,
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	if opts.batch {
		return runBatch(ctx, out, searcher, queries)
	}

	queue := analytics.NewRequestQueue(searcher, analytics.RequestQueueOptions{
		Window:  cfg.Search.RequestWindow,
		Metrics: m,
		Sink:    sinks,
	})
	var firstErr error
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		docs, err := queue.AddFindRequest(query)
		if err != nil {
			fmt.Fprintf(out, "Error in query %q: %v\n", query, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		printResults(out, engine, policy, query, docs, cfg.Search.PageSize)
	}
	fmt.Fprintf(out, "Requests without results: %d of %d\n", queue.NoResultRequests(), queue.Len())

	stats := agg.Stats()
	slog.Info("search session finished",
		"searches", stats.TotalSearches,
		"failed", stats.FailedSearches,
		"zero_results", stats.ZeroResultCount,
		"avg_latency_us", stats.AvgLatencyUs,
	)
	return firstErr
}

// loadDocuments fills the engine and returns the queries to run. Without a
// corpus file stdin carries both documents and queries.
func loadDocuments(engine *indexer.Engine, corpusFile string, stdin io.Reader) ([]string, error) {
	if corpusFile == "" {
		corpus, queries, err := ingestion.ReadClassic(stdin)
		if err != nil {
			return nil, err
		}
		return queries, corpus.Apply(engine)
	}
	corpus, err := ingestion.LoadCorpus(corpusFile)
	if err != nil {
		return nil, err
	}
	if err := corpus.Apply(engine); err != nil {
		return nil, err
	}
	var queries []string
	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		if q := sc.Text(); strings.TrimSpace(q) != "" {
			queries = append(queries, q)
		}
	}
	return queries, sc.Err()
}

func consumeIngest(ctx context.Context, cfg config.KafkaConfig, engine *indexer.Engine, m *metrics.Metrics, sink analytics.Sink, d time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	handler := consumer.HandleMessage(engine, consumer.Options{Metrics: m, Sink: sink})
	c := kafka.NewConsumer(cfg, cfg.Topics.DocumentIngest, handler)
	slog.Info("consuming ingest topic",
		"topic", cfg.Topics.DocumentIngest,
		"group", cfg.ConsumerGroup,
		"duration", d,
	)
	if err := c.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
}

func openStore(cfg config.RedisConfig) (cache.Store, func(), error) {
	if !cfg.Enabled {
		return cache.NewMemoryStore(), func() {}, nil
	}
	client, err := pkgredis.NewClient(cfg, "searchserver:")
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{})
	store := cache.NewGuardedStore(client, breaker, 200*time.Millisecond)
	return store, func() { _ = client.Close() }, nil
}

func runBatch(ctx context.Context, out io.Writer, s batch.Searcher, queries []string) error {
	results, err := batch.ProcessQueries(ctx, s, queries)
	if err != nil {
		return err
	}
	for i, docs := range results {
		fmt.Fprintf(out, "%d documents for query %q\n", len(docs), queries[i])
		for _, d := range docs {
			fmt.Fprintln(out, d)
		}
	}
	return nil
}

func printResults(out io.Writer, engine *indexer.Engine, policy execution.Policy, query string, docs []index.Document, pageSize int) {
	fmt.Fprintf(out, "Search results for: %s\n", query)
	for _, page := range paginator.Paginate(docs, pageSize) {
		for _, d := range page {
			fmt.Fprintln(out, d)
		}
		fmt.Fprintln(out, "Page break")
	}
	for _, d := range docs {
		words, status, err := engine.MatchDocumentPolicy(policy, query, d.ID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		fmt.Fprintf(out, "{ document_id = %d, status = %s, words = %s }\n", d.ID, status, strings.Join(words, " "))
	}
}

// cachedSearcher routes status queries through the result cache and runs
// every query under one execution policy.
type cachedSearcher struct {
	engine *indexer.Engine
	cache  *cache.QueryCache
	policy execution.Policy
}

func (s *cachedSearcher) FindTopDocuments(rawQuery string) ([]index.Document, error) {
	return s.FindTopDocumentsByStatus(rawQuery, index.StatusActual)
}

func (s *cachedSearcher) FindTopDocumentsByStatus(rawQuery string, status index.DocumentStatus) ([]index.Document, error) {
	docs, _, err := s.cache.GetOrCompute(context.Background(), rawQuery, status, s.engine.InstanceID(), s.engine.Generation(),
		func() ([]index.Document, error) {
			return s.engine.FindTopDocumentsPolicy(s.policy, rawQuery, index.StatusIs(status))
		})
	return docs, err
}

func (s *cachedSearcher) FindTopDocumentsFunc(rawQuery string, pred index.Predicate) ([]index.Document, error) {
	return s.engine.FindTopDocumentsPolicy(s.policy, rawQuery, pred)
}

// teeSink fans events out to several sinks.
type teeSink []analytics.Sink

func (t teeSink) Track(key string, event any) {
	for _, s := range t {
		s.Track(key, event)
	}
}
