package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/pflag"
	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/archbooth/pkg/booth"
	"github.com/tauraamui/archbooth/pkg/config"
	"github.com/tauraamui/archbooth/pkg/configdef"
	db "github.com/tauraamui/archbooth/pkg/database"
	"github.com/tauraamui/archbooth/pkg/database/repos"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/monitoring"
	"github.com/tauraamui/archbooth/pkg/participant"
	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/archbooth/pkg/upload"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

const (
	name        = "archbooth"
	description = "Arch booth kiosk which records participants framed inside an arch and shares the clip"

	gcsPrefix       = "recordings"
	shutdownTimeout = 10 * time.Second
)

var (
	configPath = pflag.String("config", "", "path to the config file, overrides ARCHBOOTH_CONFIG")
	logLevel   = pflag.String("log-level", os.Getenv("ARCHBOOTH_LOGGING_LEVEL"), "one of debug, info, warn or silent")
)

type Service struct {
	daemon.Daemon
}

// Setup writes the default config and creates the local database,
// asking for the upload token.
func (service *Service) Setup() (string, error) {
	log.Info("Setting up archbooth...")

	err := config.DefaultCreator().Create(config.Defaults())
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for archbooth...")
	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}
	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: archbooth setup | remove-setup | install | remove | start | stop | status"

	if args := pflag.Args(); len(args) > 0 {
		switch args[0] {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	lock := flock.New(filepath.Join(os.TempDir(), name+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return "", xerror.Errorf("unable to take instance lock: %w", err)
	}
	if !locked {
		return "", xerror.New("another archbooth instance is already running")
	}
	defer lock.Unlock() //nolint

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting archbooth...")
	return run(interrupt)
}

func run(interrupt chan os.Signal) (string, error) {
	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}
	if cfg.Debug {
		log.SetLevel("debug")
	}

	conn, err := db.Connect()
	if err != nil {
		return "", xerror.Errorf("unable to connect to DB, try running the setup: %w", err)
	}

	metrics := monitoring.New()
	var monitor *monitoring.Server
	if cfg.Monitoring.Enabled {
		monitor = monitoring.NewServer(cfg.Monitoring.Address, metrics)
		go monitor.Run()
	}

	timeout := time.Duration(cfg.Upload.TimeoutSeconds) * time.Second
	stores := participant.Stores{&participant.LocalStore{Repo: repos.ParticipantRepository{DB: conn}}}
	if len(cfg.Participants.URL) > 0 {
		stores = append(stores, participant.NewHTTPStore(cfg.Participants.URL, timeout))
	}

	uploader, closeUploader, err := resolveUploader(cfg, db.UploadToken(conn))
	if err != nil {
		return "", err
	}
	defer closeUploader()

	backend := videobackend.Default()
	if cfg.MockBackend {
		backend = videobackend.Mock()
	}

	b := booth.New(cfg, booth.Deps{
		Backend:      backend,
		Participants: stores,
		Uploader:     uploader,
		Recordings:   &repos.RecordingRepository{DB: conn},
		Metrics:      metrics,
	})

	api := booth.NewAPI(cfg.API.Address, b)
	if err := api.Start(); err != nil {
		b.Close()
		return "", xerror.Errorf("unable to start booth API: %w", err)
	}

	killSignal := <-interrupt
	fmt.Print("\r")
	log.Error("Received signal: %s", killSignal)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Shutdown(ctx); err != nil {
		log.Warn("Unable to stop booth API cleanly: %v", err)
	}
	b.Close()
	if monitor != nil {
		if err := monitor.Shutdown(ctx); err != nil {
			log.Warn("Unable to stop monitoring server cleanly: %v", err)
		}
	}

	return "Shutdown successful... BYE! 👋", nil
}

// resolveUploader builds the configured upload backend. A token in the
// config file wins over the one stored during setup.
func resolveUploader(cfg configdef.Values, storedToken string) (recorder.Uploader, func(), error) {
	timeout := time.Duration(cfg.Upload.TimeoutSeconds) * time.Second
	switch cfg.Upload.Backend {
	case configdef.UploadBackendGCS:
		gcs, err := upload.NewGCS(context.Background(), cfg.Upload.Bucket, gcsPrefix, cfg.Upload.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				log.Warn("Unable to close storage client: %v", err)
			}
		}, nil
	default:
		token := cfg.Upload.Token
		if len(token) == 0 {
			token = storedToken
		}
		return upload.NewHTTP(cfg.Upload.URL, token, timeout), func() {}, nil
	}
}

func main() {
	pflag.Parse()
	log.SetLevel(*logLevel)
	if len(*configPath) > 0 {
		config.OverridePath(*configPath)
	}

	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
