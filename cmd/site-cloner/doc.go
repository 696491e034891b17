// Package main hosts the site cloner service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and the clone job endpoints. A POST /clone request is
//     validated, persisted as a queued job via the JobStore, and enqueued for the worker pool; GET /jobs/{job_id}
//     reports status and progress, and GET /clone/{job_id}/raw serves the generated document once complete.
//   - Dispatcher & queue: tasks flow through a bounded queue (in-memory or Redis, sized by config.Queue.Depth) and
//     fan out to a fixed worker pool sized by config.Worker.Concurrency. Context cancellation stops workers cleanly
//     on shutdown.
//   - Clone pipeline: each worker scrapes the source page with a headless Chromedp session (viewport emulation,
//     in-page structure extraction), reduces the render into a deterministic layout summary, optionally captures
//     external stylesheets via the Colly-based fetcher, and synthesizes a standalone HTML document through the chat
//     completion backend with bounded retries.
//   - Persistence & fanout: generated documents are written to the configured artifact store (memory/local/GCS)
//     addressed by content hash. Job records live in the configured job store (memory/Redis/Postgres), and a compact
//     Pub/Sub event is published on each terminal transition. Progress events are batched and sent to the configured
//     sinks for monitoring.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the logging middleware and the /metrics handler. The service is stateless across
//     requests when backed by external providers, suitable for Cloud Run scale-out.
//
// Operational notes:
//   - Concurrency model: bounded queue + fixed worker pool; headless scrapes share a semaphore inside the scraper and
//     respect a per-domain rate cap. Shutdown is coordinated via context cancellation propagated from main through
//     the dispatcher to workers.
//   - Observability: zap logs carry job IDs and URLs at key transitions; Prometheus counters/histograms track API and
//     pipeline activity; the progress Hub batches job lifecycle events for downstream sinks.
//   - Run locally: go run ./cmd/site-cloner -config config.yaml (or rely solely on SITECLONER_* env overrides).
package main
