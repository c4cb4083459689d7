package transmission

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/putioarr/putioarr/internal/config"
	"github.com/putioarr/putioarr/internal/logging"
	"github.com/putioarr/putioarr/internal/putio"
)

// Cloud is the slice of the cloud API the RPC surface needs.
type Cloud interface {
	ListTransfers(ctx context.Context) ([]putio.Transfer, error)
	AddTransfer(ctx context.Context, link string) (*putio.Transfer, error)
	RemoveTransfer(ctx context.Context, id int64) error
	UploadTorrent(ctx context.Context, filename string, metainfo []byte) error
}

// Handler serves the Transmission RPC endpoint.
type Handler struct {
	cfg    *config.Config
	cloud  Cloud
	logger *logging.Logger
}

// NewHandler creates the RPC handler.
func NewHandler(cfg *config.Config, cloud Cloud, logger *logging.Logger) *Handler {
	return &Handler{cfg: cfg, cloud: cloud, logger: logger}
}

// Router returns the HTTP handler with the single RPC route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/transmission/rpc", h.handleGet)
	r.Post("/transmission/rpc", h.handlePost)
	return r
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled. Bind failures return before any request is served.
func (h *Handler) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", h.cfg.BindAddress, h.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{Handler: h.Router()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	h.logger.Info().Str("addr", addr).Msg("RPC endpoint listening")
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *Handler) checkAuth(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.cfg.Password)) == 1
	return userOK && passOK
}

// handleGet implements the session handshake: authenticated clients get a
// 409 carrying the session id to echo back on POSTs.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuth(r) {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}
	w.Header().Set(SessionHeader, SessionID)
	w.WriteHeader(http.StatusConflict)
}

// Request is one RPC call.
type Request struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is the RPC reply envelope. Arguments serializes as null when
// absent, matching what clients expect.
type Response struct {
	Result    string      `json:"result"`
	Arguments interface{} `json:"arguments"`
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	// A failed POST auth answers 409 with a fresh session id rather than
	// 403: download clients redo the handshake and re-prompt credentials.
	if !h.checkAuth(r) {
		w.Header().Set(SessionHeader, SessionID)
		w.WriteHeader(http.StatusConflict)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.Debug().Str("method", req.Method).Msg("RPC call")

	resp := h.dispatch(r.Context(), &req)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode RPC response")
	}
}

func (h *Handler) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "session-get":
		return h.sessionGet()
	case "session-stats":
		return h.sessionStats(ctx)
	case "torrent-get":
		return h.torrentGet(ctx, req.Arguments)
	case "torrent-add":
		return h.torrentAdd(ctx, req.Arguments)
	case "torrent-remove":
		return h.torrentRemove(ctx, req.Arguments)
	case "torrent-start", "torrent-start-now", "torrent-stop", "torrent-verify",
		"queue-move-top", "queue-move-up", "queue-move-down", "queue-move-bottom":
		// Accepted but meaningless here; the cloud manages its own queue.
		return &Response{Result: "success"}
	default:
		return &Response{Result: "method not supported"}
	}
}

func (h *Handler) sessionGet() *Response {
	cfg := DefaultSessionConfig()
	if h.cfg.DownloadDirectory != "" {
		cfg.DownloadDir = h.cfg.DownloadDirectory
	}
	return &Response{Result: "success", Arguments: cfg}
}

func (h *Handler) sessionStats(ctx context.Context) *Response {
	transfers, err := h.cloud.ListTransfers(ctx)
	if err != nil {
		// Stats are advisory; a cloud outage must not break the client.
		h.logger.Warn().Err(err).Str("method", "session-stats").Msg("Cloud API call failed, serving zeroed stats")
		return &Response{Result: "success", Arguments: SessionStats{}}
	}

	stats := SessionStats{TorrentCount: len(transfers)}
	for i := range transfers {
		switch StatusFromCloud(transfers[i].Status) {
		case StatusStopped:
			stats.PausedTorrentCount++
		default:
			stats.ActiveTorrentCount++
		}
	}
	return &Response{Result: "success", Arguments: stats}
}

type torrentGetArgs struct {
	Fields []string `json:"fields"`
	IDs    []int64  `json:"ids"`
}

func (h *Handler) torrentGet(ctx context.Context, args json.RawMessage) *Response {
	var parsed torrentGetArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return &Response{Result: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}

	transfers, err := h.cloud.ListTransfers(ctx)
	if err != nil {
		// Keep serving while the cloud is unreachable; the client sees an
		// empty list rather than an error it would treat as a dead daemon.
		h.logger.Warn().Err(err).Str("method", "torrent-get").Msg("Cloud API call failed, serving empty torrent list")
		return &Response{
			Result:    "success",
			Arguments: map[string]interface{}{"torrents": []map[string]json.RawMessage{}},
		}
	}

	wanted := func(id int64) bool {
		if len(parsed.IDs) == 0 {
			return true
		}
		for _, want := range parsed.IDs {
			if want == id {
				return true
			}
		}
		return false
	}

	torrents := make([]map[string]json.RawMessage, 0, len(transfers))
	for i := range transfers {
		if !wanted(transfers[i].ID) {
			continue
		}
		t := TorrentFromTransfer(&transfers[i], h.cfg.DownloadDirectory)
		projected, err := projectFields(t, parsed.Fields)
		if err != nil {
			return &Response{Result: err.Error()}
		}
		torrents = append(torrents, projected)
	}

	return &Response{
		Result:    "success",
		Arguments: map[string]interface{}{"torrents": torrents},
	}
}

// projectFields reduces a torrent to the requested field set. An empty
// request returns every field.
func projectFields(t Torrent, fields []string) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal torrent: %w", err)
	}
	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, fmt.Errorf("failed to project torrent: %w", err)
	}
	if len(fields) == 0 {
		return full, nil
	}

	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

type torrentAddArgs struct {
	Filename    string `json:"filename"`
	Metainfo    string `json:"metainfo"`
	DownloadDir string `json:"download-dir"`
}

// torrentAddResult is the torrent-added / torrent-duplicate payload.
type torrentAddResult struct {
	ID         int64   `json:"id"`
	HashString *string `json:"hashString"`
	Name       string  `json:"name"`
}

func (h *Handler) torrentAdd(ctx context.Context, args json.RawMessage) *Response {
	var parsed torrentAddArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return &Response{Result: fmt.Sprintf("invalid arguments: %v", err)}
	}

	if parsed.Metainfo != "" {
		data, err := base64.StdEncoding.DecodeString(parsed.Metainfo)
		if err != nil {
			return &Response{Result: fmt.Sprintf("invalid metainfo: %v", err)}
		}
		if err := h.cloud.UploadTorrent(ctx, "upload.torrent", data); err != nil {
			return h.cloudError("torrent-add", err)
		}
		h.logger.Info().Int("bytes", len(data)).Msg("Torrent file forwarded")
		// The upload endpoint does not echo the created transfer back.
		return &Response{
			Result:    "success",
			Arguments: map[string]interface{}{"torrent-added": map[string]interface{}{}},
		}
	}

	if parsed.Filename == "" {
		return &Response{Result: "torrent-add requires filename or metainfo"}
	}

	// An already-known info hash answers torrent-duplicate instead of
	// re-adding the transfer.
	if hash := InfoHashFromMagnet(parsed.Filename); hash != "" {
		transfers, err := h.cloud.ListTransfers(ctx)
		if err != nil {
			return h.cloudError("torrent-add", err)
		}
		for i := range transfers {
			if strings.EqualFold(transfers[i].HashOrEmpty(), hash) {
				h.logger.Info().Str("hash", hash).Msg("Duplicate torrent ignored")
				return &Response{
					Result: "success",
					Arguments: map[string]interface{}{
						"torrent-duplicate": torrentAddResult{
							ID:         transfers[i].ID,
							HashString: transfers[i].Hash,
							Name:       transfers[i].DisplayName(),
						},
					},
				}
			}
		}
	}

	added, err := h.cloud.AddTransfer(ctx, parsed.Filename)
	if err != nil {
		return h.cloudError("torrent-add", err)
	}

	h.logger.Info().Str("name", added.DisplayName()).Int64("id", added.ID).Msg("Transfer added")
	return &Response{
		Result: "success",
		Arguments: map[string]interface{}{
			"torrent-added": torrentAddResult{
				ID:         added.ID,
				HashString: added.Hash,
				Name:       added.DisplayName(),
			},
		},
	}
}

type torrentRemoveArgs struct {
	// IDs mixes numeric transfer ids and info-hash strings.
	IDs             []json.RawMessage `json:"ids"`
	DeleteLocalData bool              `json:"delete-local-data"`
}

func (h *Handler) torrentRemove(ctx context.Context, args json.RawMessage) *Response {
	var parsed torrentRemoveArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return &Response{Result: fmt.Sprintf("invalid arguments: %v", err)}
	}

	var ids []int64
	var hashes []string
	for _, raw := range parsed.IDs {
		var id int64
		if err := json.Unmarshal(raw, &id); err == nil {
			ids = append(ids, id)
			continue
		}
		var hash string
		if err := json.Unmarshal(raw, &hash); err == nil {
			hashes = append(hashes, hash)
			continue
		}
		return &Response{Result: fmt.Sprintf("invalid torrent id %s", raw)}
	}

	if len(hashes) > 0 {
		transfers, err := h.cloud.ListTransfers(ctx)
		if err != nil {
			return h.cloudError("torrent-remove", err)
		}
		for _, hash := range hashes {
			for i := range transfers {
				if strings.EqualFold(transfers[i].HashOrEmpty(), hash) {
					ids = append(ids, transfers[i].ID)
				}
			}
		}
	}

	for _, id := range ids {
		err := h.cloud.RemoveTransfer(ctx, id)
		if err != nil && !putio.IsNotFound(err) {
			return h.cloudError("torrent-remove", err)
		}
		h.logger.Info().Int64("id", id).Msg("Transfer removed")
	}
	return &Response{Result: "success"}
}

func (h *Handler) cloudError(method string, err error) *Response {
	h.logger.Error().Err(err).Str("method", method).Msg("Cloud API call failed")
	return &Response{Result: err.Error()}
}
