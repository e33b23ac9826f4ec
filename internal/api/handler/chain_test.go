package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/powchain/internal/api/handler"
	"github.com/jmerrifield20/powchain/internal/chain"
	"github.com/jmerrifield20/powchain/internal/node"
	"go.uber.org/zap"
)

func setupChainRouter(t *testing.T) (*gin.Engine, *node.Node) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	n := node.New(1, zap.NewNop())
	handler.NewChainHandler(n, zap.NewNop()).Register(&r.RouterGroup)
	return r, n
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetChain_genesisOnly(t *testing.T) {
	router, _ := setupChainRouter(t)

	w := do(router, http.MethodGet, "/chain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var blocks []chain.Block
	if err := json.Unmarshal(w.Body.Bytes(), &blocks); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].Index != 0 || blocks[0].PreviousHash != chain.GenesisPrevHash {
		t.Errorf("unexpected chain: %+v", blocks)
	}
}

func TestGetChain_wireFieldNames(t *testing.T) {
	router, _ := setupChainRouter(t)

	w := do(router, http.MethodGet, "/chain", "")
	var raw []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	want := []string{"index", "timestamp", "data", "previous_hash", "hash", "nonce"}
	if len(raw[0]) != len(want) {
		t.Errorf("expected exactly %d fields, got %v", len(want), raw[0])
	}
	for _, k := range want {
		if _, ok := raw[0][k]; !ok {
			t.Errorf("missing field %q in %v", k, raw[0])
		}
	}
}

func TestAddTransaction_jsonString(t *testing.T) {
	router, n := setupChainRouter(t)

	w := do(router, http.MethodPost, "/transaction", `"Alice sends 5 BTC to Bob"`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message string      `json:"message"`
		Block   chain.Block `json:"block"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "Transaction added" {
		t.Errorf("message: got %q", resp.Message)
	}
	if resp.Block.Index != 1 || resp.Block.Data != "Alice sends 5 BTC to Bob" {
		t.Errorf("block: %+v", resp.Block)
	}
	if n.Len() != 2 {
		t.Errorf("expected ledger length 2, got %d", n.Len())
	}
}

func TestAddTransaction_objectBody(t *testing.T) {
	router, n := setupChainRouter(t)

	w := do(router, http.MethodPost, "/transaction", `{"data":"Bob sends 1 BTC to Carol"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	b, err := n.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if b.Data != "Bob sends 1 BTC to Carol" {
		t.Errorf("data: got %q", b.Data)
	}
}

func TestAddTransaction_400(t *testing.T) {
	bodies := map[string]string{
		"empty body":   "",
		"empty string": `""`,
		"number":       `42`,
		"bad json":     `"unterminated`,
		"empty object": `{}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			router, n := setupChainRouter(t)
			w := do(router, http.MethodPost, "/transaction", body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if n.Len() != 1 {
				t.Errorf("rejected request must not append")
			}
		})
	}
}

func TestVerify_200(t *testing.T) {
	router, _ := setupChainRouter(t)
	do(router, http.MethodPost, "/transaction", `"tx"`)

	w := do(router, http.MethodGet, "/chain/verify", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["valid"] != true || resp["pow_valid"] != true {
		t.Errorf("expected valid chain, got %v", resp)
	}
	if int(resp["length"].(float64)) != 2 {
		t.Errorf("length: got %v", resp["length"])
	}
}

func TestLatest_200(t *testing.T) {
	router, _ := setupChainRouter(t)
	do(router, http.MethodPost, "/transaction", `"tail"`)

	w := do(router, http.MethodGet, "/chain/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var b chain.Block
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Data != "tail" {
		t.Errorf("latest data: got %q", b.Data)
	}
}

func TestGetBlock(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/chain/blocks/0", http.StatusOK},
		{"/chain/blocks/999", http.StatusNotFound},
		{"/chain/blocks/abc", http.StatusBadRequest},
		{"/chain/blocks/-1", http.StatusBadRequest},
	}
	router, _ := setupChainRouter(t)
	for _, tc := range tests {
		if w := do(router, http.MethodGet, tc.path, ""); w.Code != tc.want {
			t.Errorf("GET %s: expected %d, got %d", tc.path, tc.want, w.Code)
		}
	}
}
