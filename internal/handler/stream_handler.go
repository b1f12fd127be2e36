package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vaddzy/community-api/internal/mirror"
	"github.com/vaddzy/community-api/internal/models"
	"github.com/vaddzy/community-api/internal/service"
)

// StreamConfig tunes the websocket snapshot stream.
type StreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// StreamHandler serves the websocket snapshot stream. Each connected client
// gets the session-scoped set of collection mirrors: the public collections
// for everyone, the user roster for authenticated identities, and the
// caller's own media collection for visitors. Every message is a complete
// snapshot, never a diff.
type StreamHandler struct {
	store   *mirror.Store
	metrics *service.MetricsService
	logger  *zap.Logger
	config  StreamConfig

	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new handler.
func NewStreamHandler(store *mirror.Store, metrics *service.MetricsService, logger *zap.Logger, config StreamConfig) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 16
	}
	return &StreamHandler{
		store:   store,
		metrics: metrics,
		logger:  logger,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// collectionsFor returns the mirror set for a session. Anonymous sessions
// read the public collections; visitors add the roster and their own media.
func collectionsFor(claims *models.JWTClaims) []mirror.Collection {
	collections := []mirror.Collection{
		mirror.CollectionSiteConfig,
		mirror.CollectionAnnouncements,
		mirror.CollectionPosts,
		mirror.CollectionComments,
		mirror.CollectionLikes,
	}
	if claims == nil || claims.Role == models.RoleAnonymous {
		return collections
	}
	collections = append(collections, mirror.CollectionUsers)
	if claims.Role == models.RoleVisitor {
		collections = append(collections, mirror.MediaCollection(claims.IdentityID))
	}
	return collections
}

// Stream godoc
// @Summary Open the snapshot stream
// @Description Upgrades to a websocket delivering full collection snapshots on every change
// @Tags Stream
// @Success 101
// @Router /stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	collections := collectionsFor(claims)
	subs := make([]*mirror.Subscription, 0, len(collections))
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	out := make(chan mirror.Snapshot, h.config.SendBuffer)
	var wg sync.WaitGroup

	for _, collection := range collections {
		sub, err := h.store.Subscribe(ctx, collection, h.config.SendBuffer)
		if err != nil {
			h.logger.Warn("stream subscription failed",
				zap.String("collection", string(collection)), zap.Error(err))
			h.closeWith(conn, websocket.ClosePolicyViolation, "subscription failed")
			return
		}
		subs = append(subs, sub)

		wg.Add(1)
		go func(sub *mirror.Subscription) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case snapshot, ok := <-sub.C:
					if !ok {
						return
					}
					select {
					case <-ctx.Done():
						return
					case out <- snapshot:
					}
				}
			}
		}(sub)
	}

	if h.metrics != nil {
		h.metrics.StreamClientConnected()
		defer h.metrics.StreamClientDisconnected()
	}

	// Reader goroutine: clients never send data, but reading is what surfaces
	// close frames and keeps pong handling alive.
	go func() {
		defer cancel()
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.config.PingInterval * 2))
		})
		_ = conn.SetReadDeadline(time.Now().Add(h.config.PingInterval * 2))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(h.config.PingInterval)
	defer pingTicker.Stop()
	defer conn.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case snapshot := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				h.logger.Debug("stream write failed", zap.Error(err))
				cancel()
				wg.Wait()
				return
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				wg.Wait()
				return
			}
		}
	}
}

func (h *StreamHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(h.config.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
