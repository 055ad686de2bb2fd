package engine

import (
	"context"
	"log"
	"os"
	"sync"
	"syscall"
	"time"

	"rmfconsole/config"
	"rmfconsole/fleetconfig"
	"rmfconsole/launcher"
	"rmfconsole/messaging"
	"rmfconsole/metrics"
	"rmfconsole/relay"
	"rmfconsole/rmf"
	"rmfconsole/statecache"
	"rmfconsole/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	RMF        *rmf.Client
	// Dial opens upstream real-time connections. Defaults to rmf.DialSocket
	// against AppConfig.RMF.URL.
	Dial      relay.Dialer
	Launcher  *launcher.Registry
	Configs   *fleetconfig.Store
	Cache     *statecache.RedisStore
	MsgClient *messaging.Client
	Metrics   *metrics.Recorder
	LogFunc   LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	rmf        *rmf.Client
	dial       relay.Dialer
	launcher   *launcher.Registry
	configs    *fleetconfig.Store
	cache      *statecache.RedisStore
	msgClient  *messaging.Client
	publisher  *messaging.Publisher
	metrics    *metrics.Recorder
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}
	stopOnce   sync.Once
	watchStop  context.CancelFunc
	wg         sync.WaitGroup

	mu                sync.Mutex
	upstreamConnected bool
	msgConnected      bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		rmf:        c.RMF,
		dial:       c.Dial,
		launcher:   c.Launcher,
		configs:    c.Configs,
		cache:      c.Cache,
		msgClient:  c.MsgClient,
		metrics:    c.Metrics,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
	if e.rmf == nil {
		e.rmf = rmf.NewClient(e.cfg.RMF.RESTBaseURL(), e.cfg.RMF.Timeout)
	}
	if e.dial == nil {
		url := e.cfg.RMF.URL
		e.dial = func(ctx context.Context) (relay.Upstream, error) {
			conn, err := rmf.DialSocket(ctx, url)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}
	if e.launcher == nil {
		e.launcher = NewLauncher(&e.cfg.Processes)
	}
	if e.configs == nil {
		e.configs = fleetconfig.NewStore(e.cfg.Files.ConfigDir, e.cfg.Files.BuildingDir, e.cfg.Files.BuildingFilename)
	}
	if e.cache == nil {
		e.cache = statecache.NewRedisStore(nil, 0)
	}
	return e
}

// NewLauncher builds the launch registry for the configured commands.
func NewLauncher(p *config.ProcessesConfig) *launcher.Registry {
	buildDir := p.WorkDir
	if p.SourceDir != "" {
		buildDir = p.SourceDir
	}
	return launcher.NewRegistry(
		launcher.Target{Name: launcher.TargetROS, Command: p.ROSCommand, Dir: p.WorkDir, StopSignal: syscall.SIGINT},
		launcher.Target{Name: launcher.TargetROSSecondary, Command: p.ROSCommand2, Dir: p.WorkDir, StopSignal: syscall.SIGINT},
		launcher.Target{Name: launcher.TargetBuild, Command: p.BuildCommand, Dir: buildDir, LogOutput: true},
		launcher.Target{Name: launcher.TargetEditor, Command: p.EditorCommand, Dir: p.WorkDir},
	)
}

func (e *Engine) Start() {
	if e.msgClient != nil {
		e.publisher = messaging.NewPublisher(e.msgClient, e.cfg.Messaging.Topic, e.cfg.Messaging.Source)
		e.publisher.Start()
	}
	e.launcher.SetExitHook(e.handleProcessExit)
	e.wireEventHandlers()

	e.checkConnectionStatus()

	e.wg.Add(1)
	go e.connectionHealthLoop()

	if e.cfg.Files.WatchConfigDir {
		e.startWatcher()
	}

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	if e.watchStop != nil {
		e.watchStop()
	}
	e.wg.Wait()
	e.launcher.StopAll(5 * time.Second)
	if e.publisher != nil {
		e.publisher.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                 { return e.db }
func (e *Engine) AppConfig() *config.Config     { return e.cfg }
func (e *Engine) ConfigPath() string            { return e.configPath }
func (e *Engine) RMF() *rmf.Client              { return e.rmf }
func (e *Engine) Launcher() *launcher.Registry  { return e.launcher }
func (e *Engine) Configs() *fleetconfig.Store   { return e.configs }
func (e *Engine) Cache() *statecache.RedisStore { return e.cache }
func (e *Engine) MsgClient() *messaging.Client  { return e.msgClient }
func (e *Engine) Metrics() *metrics.Recorder    { return e.metrics }

// NewRelaySession creates a relay session for one browser output.
func (e *Engine) NewRelaySession(out relay.Output) *relay.Session {
	opts := relay.Options{
		Reconnect: e.cfg.RMF.Reconnect,
		Cache:     e.cache,
	}
	if e.metrics != nil {
		opts.Observer = e.metrics
	}
	return relay.NewSession(e.dial, &timedLister{client: e.rmf, metrics: e.metrics}, out, opts)
}

func (e *Engine) startWatcher() {
	if err := os.MkdirAll(e.configs.Dir(), 0755); err != nil {
		e.logFn("engine: config watcher disabled: %v", err)
		return
	}
	w, err := fleetconfig.NewWatcher(e.configs.Dir(), func(filename string) {
		e.Events.Emit(Event{Type: EventConfigChanged, Payload: ConfigChangedEvent{Filename: filename}})
	})
	if err != nil {
		e.logFn("engine: config watcher disabled: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.watchStop = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		w.Run(ctx)
	}()
}
