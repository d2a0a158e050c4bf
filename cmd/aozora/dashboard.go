// cmd/aozora/dashboard.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Operator-surface contracts, satisfied by the real Pipeline/Scheduler and
// by fakes in tests.
type dashboardPipeline interface {
	RunOnce(ctx context.Context) (RunResult, error)
	PreviewNext(ctx context.Context) (*Preview, error)
}

type dashboardScheduler interface {
	Start(intervalMinutes int) error
	Stop()
	Running() bool
	Interval() time.Duration
}

type postedLister interface {
	List() ([]string, error)
}

// Dashboard is the operator surface: preview the next post, trigger an
// immediate run, inspect posting history, and control the schedule.
type Dashboard struct {
	pipeline  dashboardPipeline
	scheduler dashboardScheduler
	ledger    postedLister
	state     *StateStore
	router    *mux.Router

	wsMutex   sync.Mutex
	wsClients map[*websocket.Conn]bool
	upgrader  websocket.Upgrader
}

// NewDashboard wires the router over the given collaborators
func NewDashboard(pipeline dashboardPipeline, scheduler dashboardScheduler, ledger postedLister, state *StateStore) *Dashboard {
	d := &Dashboard{
		pipeline:  pipeline,
		scheduler: scheduler,
		ledger:    ledger,
		state:     state,
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard is bound to localhost in practice
			},
		},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", d.handleStatus).Methods("GET")
	api.HandleFunc("/preview", d.handlePreview).Methods("GET")
	api.HandleFunc("/run", d.handleRunNow).Methods("POST")
	api.HandleFunc("/posted", d.handlePosted).Methods("GET")
	api.HandleFunc("/scheduler/start", d.handleSchedulerStart).Methods("POST")
	api.HandleFunc("/scheduler/stop", d.handleSchedulerStop).Methods("POST")
	api.HandleFunc("/ws", d.handleWebsocket)
	r.HandleFunc("/", d.handleHome).Methods("GET")

	d.router = r
	return d
}

// Start serves the dashboard in the background
func (d *Dashboard) Start(port int) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		Logger().Info("Starting dashboard on http://localhost%s", addr)
		if err := http.ListenAndServe(addr, d.router); err != nil {
			Logger().Error("Dashboard server failed: %v", err)
		}
	}()
}

// handleStatus returns runtime state and scheduler status
func (d *Dashboard) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := d.state.Snapshot()

	status := map[string]interface{}{
		"version":          state.Version,
		"uptime":           time.Since(state.StartupTime).String(),
		"runCount":         state.RunCount,
		"publishedCount":   state.PublishedCount,
		"errorCount":       state.ErrorCount,
		"lastOutcome":      state.LastOutcome,
		"lastPostId":       state.LastPostID,
		"lastRunTime":      state.LastRunTime,
		"lastError":        state.LastError,
		"schedulerRunning": d.scheduler.Running(),
	}
	if interval := d.scheduler.Interval(); interval > 0 {
		status["intervalMinutes"] = int(interval.Minutes())
		if !state.LastRunTime.IsZero() {
			status["nextRunTime"] = state.LastRunTime.Add(interval)
		}
	}

	respondWithJSON(w, http.StatusOK, status)
}

// handlePreview generates the next post without publishing it
func (d *Dashboard) handlePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := d.pipeline.PreviewNext(r.Context())
	if err != nil {
		respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, preview)
}

// handleRunNow triggers an immediate pipeline run
func (d *Dashboard) handleRunNow(w http.ResponseWriter, r *http.Request) {
	result, err := d.pipeline.RunOnce(r.Context())
	if err != nil {
		respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// handlePosted lists everything recorded in the ledger
func (d *Dashboard) handlePosted(w http.ResponseWriter, r *http.Request) {
	ids, err := d.ledger.List()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to read ledger")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(ids),
		"ids":   ids,
	})
}

// handleSchedulerStart installs a new schedule, replacing any running one
func (d *Dashboard) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntervalMinutes int `json:"intervalMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := d.scheduler.Start(body.IntervalMinutes); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"running":         true,
		"intervalMinutes": body.IntervalMinutes,
	})
}

// handleSchedulerStop stops the schedule; stopping an idle one is a no-op
func (d *Dashboard) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	d.scheduler.Stop()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"running": false,
	})
}

// handleWebsocket upgrades and registers a client for run event broadcasts
func (d *Dashboard) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger().Warning("Websocket upgrade failed: %v", err)
		return
	}

	d.wsMutex.Lock()
	d.wsClients[conn] = true
	d.wsMutex.Unlock()

	// Reader loop exists only to notice the client going away
	go func() {
		defer func() {
			d.wsMutex.Lock()
			delete(d.wsClients, conn)
			d.wsMutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastRun pushes a run result to all connected websocket clients
func (d *Dashboard) BroadcastRun(result RunResult, err error) {
	event := map[string]interface{}{
		"event":  "run",
		"result": result,
		"time":   time.Now(),
	}
	if err != nil {
		event["error"] = err.Error()
	}
	d.broadcast(event)
}

// BroadcastEvent pushes an arbitrary named message to websocket clients
func (d *Dashboard) BroadcastEvent(kind, message string) {
	d.broadcast(map[string]interface{}{
		"event":   kind,
		"message": message,
		"time":    time.Now(),
	})
}

func (d *Dashboard) broadcast(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	d.wsMutex.Lock()
	defer d.wsMutex.Unlock()
	for client := range d.wsClients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(d.wsClients, client)
		}
	}
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Aozora News Bot</title></head>
<body>
<h1>Aozora News Bot</h1>
<p>Operator API:</p>
<ul>
<li>GET /api/status</li>
<li>GET /api/preview</li>
<li>POST /api/run</li>
<li>GET /api/posted</li>
<li>POST /api/scheduler/start {"intervalMinutes": 60}</li>
<li>POST /api/scheduler/stop</li>
<li>GET /api/ws (run events)</li>
</ul>
<p>Version {{.Version}}, up since {{.StartupTime.Format "2006-01-02 15:04:05"}}</p>
</body>
</html>`))

// handleHome renders a minimal index page pointing at the API
func (d *Dashboard) handleHome(w http.ResponseWriter, r *http.Request) {
	state := d.state.Snapshot()
	if err := homeTemplate.Execute(w, state); err != nil {
		http.Error(w, fmt.Sprintf("Error executing template: %v", err), http.StatusInternalServerError)
	}
}

// respondWithJSON writes a JSON response with the given status code
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a JSON error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
