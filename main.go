package main

import (
	"github.com/mizuha/uploadq-go/api"
	"github.com/mizuha/uploadq-go/api/eventhub"
	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/queue"
	"github.com/mizuha/uploadq-go/tool"
	"github.com/mizuha/uploadq-go/transfer"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UsePort > 0 {
		appCfg.Port = cfg.UsePort
	}
	if cfg.UseSpoolFolder != "" {
		appCfg.SpoolFolder = cfg.UseSpoolFolder
	}
	if cfg.UseDefaultEndpoint != "" {
		appCfg.DefaultEndpoint = cfg.UseDefaultEndpoint
	}

	tool.InitLogger(cfg.Log)
	tool.InitUploadClient(appCfg.InsecureTLS)

	registry := queue.New()
	executor := transfer.NewExecutor(transfer.NewHTTPTransport(appCfg.TicksPerSecond), registry)
	service := dispatch.New(registry, executor, dispatch.Options{
		DefaultURL:    appCfg.DefaultEndpoint,
		DefaultMethod: appCfg.DefaultMethod,
		EventBuffer:   appCfg.EventBufferSize,
	})
	service.Start()

	hub := eventhub.New()
	go func() {
		for {
			select {
			case ev := <-service.Events():
				tool.DefaultLogger.Debugf("[Event] %s", ev.Type)
				hub.Broadcast(&ev)
			case <-service.Done():
				return
			}
		}
	}()

	apiServer := api.NewServer(appCfg.Port, appCfg.SpoolFolder, service, hub)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	select {}
}
