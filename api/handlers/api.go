package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/api"
	"github.com/lifeline-response/lifeline-api/api/scheduler"
	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/databases"
	"github.com/lifeline-response/lifeline-api/dispatch"
	"github.com/lifeline-response/lifeline-api/models"
	"github.com/lifeline-response/lifeline-api/notify"
	"github.com/lifeline-response/lifeline-api/realtime"
)

// requestTimeout bounds every REST request. The websocket endpoint is
// registered outside this middleware.
const requestTimeout = 30 * time.Second

// App stores the router and the long-lived services, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Engine    *dispatch.Engine
	Hub       *realtime.Hub
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	report := Report{Engine: a.Engine}
	rescuer := Rescuer{Engine: a.Engine}
	stats := Stats{Engine: a.Engine}
	smsWebhook := SMS{Engine: a.Engine}
	cloudinaryHandler := CloudinaryHandler{Config: a.Config.Cloudinary}
	metricsHandler := MetricsHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// the websocket lives on the root router so the request timeout does
	// not apply to it
	r.HandleFunc("/ws", a.Hub.ServeWS)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(requestTimeout))

	apiCreate.Handle("/reports", http.HandlerFunc(report.CreateReportHandler)).Methods("POST")
	apiCreate.Handle("/reports", http.HandlerFunc(report.ReportsHandler)).Methods("GET")
	apiCreate.Handle("/reports/{report_id}", http.HandlerFunc(report.ReportByIDHandler)).Methods("GET")
	apiCreate.Handle("/reports/{report_id}/claim", http.HandlerFunc(report.ClaimReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}/status", http.HandlerFunc(report.UpdateStatusHandler)).Methods("PUT")
	apiCreate.Handle("/reports/{report_id}/release", http.HandlerFunc(report.ReleaseReportHandler)).Methods("POST")

	apiCreate.Handle("/rescuers/register", http.HandlerFunc(rescuer.RegisterRescuerHandler)).Methods("POST")
	apiCreate.Handle("/rescuers/heartbeat", http.HandlerFunc(rescuer.HeartbeatHandler)).Methods("POST")
	apiCreate.Handle("/rescuers", http.HandlerFunc(rescuer.RescuersHandler)).Methods("GET")

	apiCreate.Handle("/stats", http.HandlerFunc(stats.StatsHandler)).Methods("GET")

	apiCreate.Handle("/sms/incoming", http.HandlerFunc(smsWebhook.IncomingSMSHandler)).Methods("POST")

	apiCreate.Handle("/uploads/signature", http.HandlerFunc(cloudinaryHandler.GenerateSignature)).Methods("POST")

	apiCreate.Handle("/metrics", http.HandlerFunc(metricsHandler.GetMetricsSummary)).Methods("GET")
	apiCreate.Handle("/metrics/routes", http.HandlerFunc(metricsHandler.GetRouteMetrics)).Methods("GET")

	r.Use(api.MetricsMiddleware)

	return r
}

// Initialize is invoked by main to wire the stores, the dispatch engine,
// the realtime hub and the scheduler, and to create a router
func (a *App) Initialize() error {
	reports, rescuers, err := a.initializeStores()
	if err != nil {
		return err
	}

	a.Hub = realtime.New()
	a.Engine = dispatch.New(dispatch.Config{
		Reports:          reports,
		Rescuers:         rescuers,
		Broadcaster:      a.Hub,
		Notifier:         notify.New(&a.Config),
		AllowSelfReclaim: a.Config.AllowSelfReclaim,
	})
	a.Hub.SetSource(a.Engine)

	a.Scheduler = scheduler.NewScheduler(a.Engine, rescuers, a.Config.RescuerLivenessWindow)

	api.InitMetrics(5000)

	// initialize api router
	a.initializeRoutes()
	return nil
}

// initializeStores picks the storage backend. The default in-memory stores
// keep a field deployment alive with no database at all; mongo is opted
// into for installations that need reports to survive a restart.
func (a *App) initializeStores() (databases.ReportDatabase, databases.RescuerDatabase, error) {
	if a.Config.StoreBackend != "mongo" {
		zap.S().Infow("using in-memory stores", "backend", a.Config.StoreBackend)
		return databases.NewMemoryReportDatabase(), databases.NewMemoryRescuerDatabase(), nil
	}

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return nil, nil, err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return nil, nil, err
	}
	zap.S().Info("lifeline-api has connected to the database")

	return databases.NewReportDatabase(a.dbHelper), databases.NewRescuerDatabase(a.dbHelper), nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
