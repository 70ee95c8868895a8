package booth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tauraamui/archbooth/pkg/flow"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/participant"
	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/archbooth/pkg/share"
)

const (
	maxMessageSize = 1024
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendTimeout    = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the kiosk front end is served from its own origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// API is the local control surface the kiosk front end drives the
// booth through. State changes are pushed over the /events socket.
type API struct {
	booth      *Booth
	httpServer *http.Server
}

func NewAPI(address string, b *Booth) *API {
	a := API{booth: b}
	a.httpServer = &http.Server{Addr: address, Handler: a.Handler()}
	return &a
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", a.state)
	mux.HandleFunc("GET /events", a.events)
	mux.HandleFunc("POST /flow/begin", a.action(func(*http.Request) error { return a.booth.Begin() }))
	mux.HandleFunc("POST /flow/home", a.action(func(*http.Request) error { a.booth.Home(); return nil }))
	mux.HandleFunc("POST /participant", a.submit)
	mux.HandleFunc("POST /recording/start", a.action(func(*http.Request) error { return a.booth.StartRecording() }))
	mux.HandleFunc("POST /recording/stop", a.action(func(*http.Request) error { return a.booth.StopRecording() }))
	mux.HandleFunc("POST /recording/retry", a.action(func(*http.Request) error { return a.booth.RetryRecording() }))
	mux.HandleFunc("POST /recording/send", a.send)
	mux.HandleFunc("POST /share/done", a.action(func(*http.Request) error { return a.booth.FinishShare() }))
	mux.HandleFunc("GET /share/qr.png", a.qr)
	return mux
}

// Start listens straight away so address errors surface to the caller,
// then serves in the background.
func (a *API) Start() error {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Info("Booth API listening on %s", l.Addr())
	go func() {
		if err := a.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Booth API stopped: %v", err)
		}
	}()
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, participant.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, flow.ErrTransition),
		errors.Is(err, recorder.ErrInvalidTransition),
		errors.Is(err, ErrNoComposite),
		errors.Is(err, ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, recorder.ErrUpload):
		return http.StatusBadGateway
	case errors.Is(err, share.ErrNoURL):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Unable to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// action runs fn and answers with the resulting state.
func (a *API) action(fn func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.booth.State())
	}
}

func (a *API) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.booth.State())
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var p participant.Participant
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed participant"})
		return
	}
	if err := a.booth.Submit(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.booth.State())
}

func (a *API) send(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), sendTimeout)
	defer cancel()
	url, err := a.booth.SendRecording(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		URL   string `json:"url"`
		State State  `json:"state"`
	}{URL: url, State: a.booth.State()})
}

func (a *API) qr(w http.ResponseWriter, r *http.Request) {
	png, err := a.booth.ShareQR()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(png); err != nil {
		log.Debug("Unable to write share code: %v", err)
	}
}

// events streams the booth state, the current one first and then
// every change, until the client goes away.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("Unable to upgrade events socket: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := a.booth.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("Events socket closed: %v", err)
				}
				return
			}
		}
	}()

	write := func(state State) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(state) == nil
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if !write(a.booth.State()) {
		return
	}
	for {
		select {
		case <-gone:
			return
		case state, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if !write(state) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
