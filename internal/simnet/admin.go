package simnet

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/hiero_client/internal/middleware"
	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// =============================================================================
// Admin HTTP API
// =============================================================================

// CreateAccountRequest funds a new account outside of consensus.
type CreateAccountRequest struct {
	PublicKey string `json:"public_key"`
	KeyType   string `json:"key_type"`
	Balance   int64  `json:"balance"`
}

// TopicView is the admin representation of a topic.
type TopicView struct {
	ID             string `json:"id"`
	Memo           string `json:"memo"`
	SequenceNumber uint64 `json:"sequence_number"`
	RunningHash    string `json:"running_hash"`
}

// AccountView is the admin representation of an account.
type AccountView struct {
	ID        string `json:"id"`
	KeyType   string `json:"key_type"`
	PublicKey string `json:"public_key"`
	Balance   int64  `json:"balance"`
}

// NewAdminRouter exposes health, state inspection, genesis account creation
// and Prometheus gauges over the cluster's network.
func NewAdminRouter(c *Cluster, log *logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewNop()
	}
	a := &admin{cluster: c, log: log}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(log))
	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.stats).Methods(http.MethodGet)
	r.HandleFunc("/accounts", a.createAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}", a.account).Methods(http.MethodGet)
	r.HandleFunc("/topics/{id}", a.topic).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(newStatsRegistry(c), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

type admin struct {
	cluster *Cluster
	log     *logger.Logger
}

func (a *admin) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"gateways": a.cluster.GatewayEndpoints,
		"mirror":   a.cluster.MirrorEndpoint,
	})
}

func (a *admin) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cluster.Network.Stats())
}

func (a *admin) createAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(req.PublicKey, "0x"))
	if err != nil || len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "public_key must be hex")
		return
	}
	key := wire.PublicKey{Type: wire.KeyTypeEd25519, Key: raw}
	switch strings.ToLower(req.KeyType) {
	case "", "ed25519":
	case "ecdsa", "ecdsa-secp256r1":
		key.Type = wire.KeyTypeECDSASecp256r1
	default:
		writeError(w, http.StatusBadRequest, "unsupported key_type")
		return
	}
	if req.Balance < 0 {
		writeError(w, http.StatusBadRequest, "balance must be >= 0")
		return
	}

	id := a.cluster.Network.CreateAccount(key, req.Balance)
	a.log.WithContext(r.Context()).WithField("account", id.String()).Info("genesis account created")
	writeJSON(w, http.StatusCreated, map[string]string{"account_id": id.String()})
}

func (a *admin) account(w http.ResponseWriter, r *http.Request) {
	id, err := wire.ParseEntityID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acct, ok := a.cluster.Network.Account(id)
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, AccountView{
		ID:        acct.ID.String(),
		KeyType:   acct.Key.Type.String(),
		PublicKey: hex.EncodeToString(acct.Key.Key),
		Balance:   acct.Balance,
	})
}

func (a *admin) topic(w http.ResponseWriter, r *http.Request) {
	id, err := wire.ParseEntityID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, ok := a.cluster.Network.Topic(id)
	if !ok {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	writeJSON(w, http.StatusOK, TopicView{
		ID:             t.ID.String(),
		Memo:           t.Memo,
		SequenceNumber: t.SequenceNumber,
		RunningHash:    hex.EncodeToString(t.RunningHash),
	})
}

func newStatsRegistry(c *Cluster) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string, read func(Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "simnet",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(c.Network.Stats())) })
	}
	reg.MustRegister(
		gauge("accounts", "Accounts held by the network.", func(s Stats) int { return s.Accounts }),
		gauge("topics", "Topics held by the network.", func(s Stats) int { return s.Topics }),
		gauge("schedules", "Schedules held by the network.", func(s Stats) int { return s.Schedules }),
		gauge("topic_messages", "Messages across all topics.", func(s Stats) int { return s.Messages }),
		gauge("transactions", "Transactions with a stored receipt.", func(s Stats) int { return s.Transactions }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "simnet",
			Name:      "mirror_active_subscriptions",
			Help:      "Subscriptions currently streaming.",
		}, func() float64 { return float64(c.Mirror.Active()) }),
	)
	return reg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
