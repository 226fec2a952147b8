package simnet

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/R3E-Network/hiero_client/internal/middleware"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

func serveAdmin(t *testing.T, c *Cluster, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewAdminRouter(c, nil).ServeHTTP(rec, req)
	return rec
}

func TestAdminHealth(t *testing.T) {
	c := startCluster(t, 1)
	rec := serveAdmin(t, c, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(middleware.TraceHeader) == "" {
		t.Fatal("missing trace header")
	}
}

func TestAdminCreateAndReadAccount(t *testing.T) {
	c := startCluster(t, 1)
	key := newTestKey(t)
	body := `{"public_key":"` + hex.EncodeToString(key.pub.Key) + `","balance":42}`

	rec := serveAdmin(t, c, http.MethodPost, "/accounts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = serveAdmin(t, c, http.MethodGet, "/accounts/"+created["account_id"], "")
	var view AccountView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Balance != 42 || view.PublicKey != hex.EncodeToString(key.pub.Key) {
		t.Fatalf("account = %+v", view)
	}

	if rec := serveAdmin(t, c, http.MethodPost, "/accounts", `{"public_key":"zz"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad key status = %d", rec.Code)
	}
	if rec := serveAdmin(t, c, http.MethodGet, "/accounts/0.0.999999", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing account status = %d", rec.Code)
	}
}

func TestAdminTopicAndMetrics(t *testing.T) {
	c := startCluster(t, 1)
	alice := newTestKey(t)
	a := c.Network.CreateAccount(alice.pub, 1_000_000)
	topic := createTopic(t, c.Network, a, alice, 0)
	msg := buildTx(t, txID(a, time.Second), wire.KindTopicMessage, wire.TopicMessageBody{Topic: topic, Message: []byte("m")}, alice)
	if resp := c.Network.Submit(msg); resp.Code != wire.OK {
		t.Fatalf("submit: %s", resp.Code)
	}

	rec := serveAdmin(t, c, http.MethodGet, "/topics/"+topic.String(), "")
	var view TopicView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.SequenceNumber != 1 || len(view.RunningHash) != 96 {
		t.Fatalf("topic = %+v", view)
	}

	rec = serveAdmin(t, c, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "simnet_topic_messages 1") {
		t.Fatalf("metrics missing message gauge:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "simnet_accounts 1") {
		t.Fatalf("metrics missing account gauge:\n%s", rec.Body.String())
	}
}
