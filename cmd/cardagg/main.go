package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/healthrisk/cardagg-engine/internal/api"
	"github.com/healthrisk/cardagg-engine/internal/config"
	"github.com/healthrisk/cardagg-engine/internal/pipeline"
	"github.com/healthrisk/cardagg-engine/internal/store"
	"github.com/healthrisk/cardagg-engine/internal/taskqueue"
	"github.com/healthrisk/cardagg-engine/internal/windows"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

func main() {
	log.Println("Starting card aggregation fraud-detection engine...")

	configPath := flag.String("config", "", "path to YAML config file (overrides env/flags below)")
	startDate := flag.String("start-date", "", "window start date (YYYY-MM-DD)")
	endDate := flag.String("end-date", "", "window end date (YYYY-MM-DD)")
	admdvs := flag.String("admdvs", "", "jurisdiction filter, empty for all")
	modelNo := flag.String("model-no", "", "run identifier persisted with each risk group")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a single batch run")
	flag.Parse()

	params := config.Defaults()
	run := config.Config{StartDate: *startDate, EndDate: *endDate, Admdvs: *admdvs, ModelNo: *modelNo}
	run.Postgres.DSN = requireEnv("DATABASE_URL")

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		run = *cfg
		params = cfg.Params.RskCrdGtr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := store.Connect(ctx, run.Postgres.DSN)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()
	if err := pg.InitSchema(ctx); err != nil {
		log.Printf("Warning: schema init failed: %v", err)
	}

	p := &pipeline.Pipeline{
		Source: pg,
		Sink:   pg,
		Params: pipeline.Params{
			TimeInterval:              params.TimeInterval,
			MinCount:                  params.MinCount,
			MinSize:                   params.MinSize,
			MaxSize:                   params.MaxSize,
			MinJgNum:                  params.MinJgNum,
			MinPersonRatioInSubgroup:  params.MinPersonRatioInSubgroup,
			MinRiskClinicRatioInGroup: params.MinRiskClinicRatioInGroup,
			ResolutionParameter:       params.ResolutionParameter,
			NJobs:                     params.NJobs,
		},
	}

	if *serve {
		runServer(ctx, p, pg)
		return
	}

	runBatch(ctx, p, run, params)
}

// runBatch slides the configured window over [start_date, end_date] and
// runs the pipeline synchronously for each one, mirroring the original
// CLI's single-process batch mode.
func runBatch(ctx context.Context, p *pipeline.Pipeline, run config.Config, params config.Params) {
	if run.StartDate == "" || run.EndDate == "" {
		log.Fatal("FATAL: -start-date and -end-date are required in batch mode (or set them in -config)")
	}

	wins, err := windows.Iterate(run.StartDate, run.EndDate, params.WindowSize, params.StepSize)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	groupPrefix := run.ModelNo
	if groupPrefix == "" {
		groupPrefix = run.StartDate
	}

	var totalGroups int
	for _, w := range wins {
		meta := models.WindowMetadata{
			ModelNo:       run.ModelNo,
			RunTime:       time.Now(),
			Admdvs:        run.Admdvs,
			InputBegnDate: w.Begin,
			InputEndDate:  w.End,
			GroupIDPrefix: groupPrefix,
		}
		res, err := p.RunWindow(ctx, meta)
		if err != nil {
			log.Fatalf("FATAL: window %s..%s: %v", w.Begin, w.End, err)
		}
		if res == nil {
			log.Printf("cardagg: window %s..%s produced no groups", w.Begin, w.End)
			continue
		}
		totalGroups += len(res.Groups)
		log.Printf("cardagg: window %s..%s persisted %d risk-group rows", w.Begin, w.End, len(res.Groups))
	}
	log.Printf("cardagg: batch run complete, %d windows, %d total rows", len(wins), totalGroups)
}

// runServer starts the HTTP API plus an async task queue for on-demand runs.
func runServer(ctx context.Context, p *pipeline.Pipeline, pg *store.PostgresStore) {
	wsHub := api.NewHub()
	go wsHub.Run()

	tq := taskqueue.New(4, 24*time.Hour, func(ctx context.Context, task taskqueue.Task) error {
		meta := models.WindowMetadata{
			RunTime:       time.Now(),
			Admdvs:        task.Admdvs,
			InputBegnDate: task.StartDate,
			InputEndDate:  task.EndDate,
			GroupIDPrefix: task.ID,
		}
		_, err := p.RunWindow(ctx, meta)
		return err
	})
	tq.Start(ctx)
	defer tq.Stop()
	go drainResults(tq, wsHub)

	r := api.SetupRouter(p, pg, wsHub, tq)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("cardagg: API listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("FATAL: failed to start server: %v", err)
	}
}

// drainResults logs each queued window's outcome and pushes it to any
// connected dashboard clients; without a drain, a full results buffer
// would block every worker.
func drainResults(tq *taskqueue.Queue, wsHub *api.Hub) {
	for r := range tq.Results() {
		if r.Err != nil {
			log.Printf("cardagg: task %s failed: %v", r.TaskID, r.Err)
			wsHub.Broadcast([]byte(`{"type":"task_result","taskId":"` + r.TaskID + `","status":"failed"}`))
			continue
		}
		wsHub.Broadcast([]byte(`{"type":"task_result","taskId":"` + r.TaskID + `","status":"ok"}`))
	}
}

func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
