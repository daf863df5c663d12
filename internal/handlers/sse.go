package handlers

import (
  "net/http"
  "strings"
  "sync"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/requestdata"
  "github.com/courseloom/courseloom-backend/internal/sse"
)

// SSEHandler owns the live SSE connections. Subscribe and unsubscribe apply
// to every open stream of the calling user.
type SSEHandler struct {
  log *logger.Logger
  hub *sse.SSEHub

  mu      sync.Mutex
  byUser  map[uuid.UUID]map[*sse.SSEClient]bool
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{
    log:    log.With("handler", "SSEHandler"),
    hub:    hub,
    byUser: make(map[uuid.UUID]map[*sse.SSEClient]bool),
  }
}

// GET /sse/stream?channels=a,b,c
func (sh *SSEHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
    return
  }

  client := sh.hub.NewSSEClient(rd.UserID)
  for _, channel := range splitChannels(c.Query("channels")) {
    sh.hub.AddChannel(client, channel)
  }

  sh.mu.Lock()
  clients, ok := sh.byUser[rd.UserID]
  if !ok {
    clients = make(map[*sse.SSEClient]bool)
    sh.byUser[rd.UserID] = clients
  }
  clients[client] = true
  sh.mu.Unlock()

  defer func() {
    sh.mu.Lock()
    if clients, ok := sh.byUser[rd.UserID]; ok {
      delete(clients, client)
      if len(clients) == 0 {
        delete(sh.byUser, rd.UserID)
      }
    }
    sh.mu.Unlock()
    sh.hub.CloseClient(client)
  }()

  sh.hub.ServeHTTP(c.Writer, c.Request, client)
}

// POST /sse/subscribe {"channels": ["..."]}
func (sh *SSEHandler) SSESubscribe(c *gin.Context) {
  sh.updateChannels(c, sh.hub.AddChannel)
}

// POST /sse/unsubscribe {"channels": ["..."]}
func (sh *SSEHandler) SSEUnsubscribe(c *gin.Context) {
  sh.updateChannels(c, sh.hub.RemoveChannel)
}

func (sh *SSEHandler) updateChannels(c *gin.Context, apply func(*sse.SSEClient, string)) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
    return
  }
  var req struct {
    Channels []string `json:"channels"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || len(req.Channels) == 0 {
    c.JSON(http.StatusBadRequest, gin.H{"error": "channels required"})
    return
  }

  sh.mu.Lock()
  defer sh.mu.Unlock()
  for client := range sh.byUser[rd.UserID] {
    for _, channel := range req.Channels {
      apply(client, channel)
    }
  }
  c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func splitChannels(raw string) []string {
  var out []string
  for _, part := range strings.Split(raw, ",") {
    if part = strings.TrimSpace(part); part != "" {
      out = append(out, part)
    }
  }
  return out
}
