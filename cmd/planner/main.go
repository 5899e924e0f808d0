/*
Planner serves the highway path-planning core over the simulator's
websocket protocol: it receives one telemetry frame per simulator tick and
answers with the next 50 points of trajectory, holding the ego vehicle in
its lane, tracking traffic ahead, and changing lanes when doing so keeps it
closer to the speed limit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"highwayplanner/internal/config"
	"highwayplanner/internal/mapdata"
	"highwayplanner/internal/obs"
	"highwayplanner/internal/planner"
	"highwayplanner/internal/transport"
	"highwayplanner/internal/vehicle"
)

var (
	dbg        *bool
	host       *string
	port       *string
	mapPath    *string
	configPath *string
	addr       string
)

// TODO: per 12-factor rules these should be overridable from env too; flags
// are enough for the single-deployment case this serves today.
func init() {
	dbg = flag.Bool("debug", false, "enable debug-level logging")
	host = flag.String("host", "", "the host ip to bind")
	port = flag.String("port", "4567", "the host port to bind")
	mapPath = flag.String("map", "./data/highway_map.csv", "path to the waypoint map file")
	configPath = flag.String("config", "./config.yaml", "path to the planner config file")
	flag.Parse()
	addr = *host + ":" + *port
}

func runApp(ctx context.Context) error {
	level := logrus.InfoLevel
	if *dbg {
		level = logrus.DebugLevel
	}
	log := obs.New(level, os.Stderr)

	cfg, err := config.Load(*configPath, flagWasSet("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if effective, yamlErr := cfg.YAML(); yamlErr == nil {
		log.WithField("config", string(effective)).Info("config loaded")
	} else {
		log.WithField("speedLimitMph", *cfg.SpeedLimitMph).Info("config loaded")
	}

	m, err := mapdata.Load(*mapPath)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	log.WithField("waypoints", len(m.Waypoints)).Info("map loaded")

	params := cfg.ToVehicleParams()

	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/socket.io", func(w http.ResponseWriter, r *http.Request) {
		handleConnection(w, r, m, log, &params)
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.WithField("addr", addr).Info("serving")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func handleConnection(w http.ResponseWriter, r *http.Request, m *mapdata.Map, log *obs.Logger, params *vehicle.Params) {
	sess, err := transport.Upgrade(w, r, planner.New(m, log, params), log)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}
	if err := sess.Serve(); err != nil {
		log.WithError(err).Info("connection closed")
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// flagWasSet reports whether name was explicitly passed on the command
// line, so a missing default config file is not treated as fatal while a
// missing explicitly-requested one is.
func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := runApp(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
