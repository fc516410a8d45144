package mcc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/high-horse/afis-search/internal/index"
)

type bridgeCall struct {
	method string
	path   string
	body   map[string]any
}

func newBridge(t *testing.T, status int, response string) (*Client, *[]bridgeCall) {
	t.Helper()
	var calls []bridgeCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := bridgeCall{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&call.body)
		}
		calls = append(calls, call)
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second), &calls
}

func TestCreateIndexSendsParams(t *testing.T) {
	client, calls := newBridge(t, http.StatusOK, `{}`)

	params := index.Params{
		Sectors:          8,
		Directions:       6,
		CellHeight:       24,
		CellWidth:        32,
		MinValidCells:    30,
		MinPairs:         2,
		AngularTolerance: 0.7853975,
		SpatialTolerance: 256,
		Seed:             17,
	}
	if err := client.CreateIndex(context.Background(), params); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	call := (*calls)[0]
	if call.method != http.MethodPost || call.path != "/index" {
		t.Fatalf("call = %s %s", call.method, call.path)
	}
	if call.body["sectors"] != float64(8) || call.body["seed"] != float64(17) {
		t.Fatalf("body = %v", call.body)
	}
}

func TestAddTemplate(t *testing.T) {
	client, calls := newBridge(t, http.StatusOK, `{}`)

	if err := client.AddTemplate(context.Background(), "/data/a.txt", 3); err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}

	call := (*calls)[0]
	if call.path != "/index/templates" {
		t.Fatalf("path = %s", call.path)
	}
	if call.body["caminho"] != "/data/a.txt" || call.body["id"] != float64(3) {
		t.Fatalf("body = %v", call.body)
	}
}

func TestSearchDecodesParallelSequences(t *testing.T) {
	client, calls := newBridge(t, http.StatusOK, `{"ids":[1,0],"scores":[0.02,0.9]}`)

	ids, scores, err := client.Search(context.Background(), "/data/probe.txt", false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{1, 0}) {
		t.Fatalf("ids = %v", ids)
	}
	if !reflect.DeepEqual(scores, []float64{0.02, 0.9}) {
		t.Fatalf("scores = %v", scores)
	}

	call := (*calls)[0]
	if call.body["caminho_probe"] != "/data/probe.txt" || call.body["exaustiva"] != false {
		t.Fatalf("body = %v", call.body)
	}
}

func TestReleaseIndex(t *testing.T) {
	client, calls := newBridge(t, http.StatusOK, `{}`)

	if err := client.ReleaseIndex(context.Background()); err != nil {
		t.Fatalf("ReleaseIndex: %v", err)
	}
	call := (*calls)[0]
	if call.method != http.MethodDelete || call.path != "/index" {
		t.Fatalf("call = %s %s", call.method, call.path)
	}
}

func TestBridgeErrorCarriesMessage(t *testing.T) {
	client, _ := newBridge(t, http.StatusInternalServerError, `{"status":"erro","mensagem":"índice não carregado"}`)

	err := client.LoadIndex(context.Background(), "/data/gallery.idx")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "índice não carregado") {
		t.Fatalf("err = %v, want bridge mensagem", err)
	}
}

func TestBridgeErrorWithoutEnvelope(t *testing.T) {
	client, _ := newBridge(t, http.StatusBadGateway, `gateway timeout`)

	err := client.SaveIndex(context.Background(), "/data/gallery.idx")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status code", err)
	}
}
