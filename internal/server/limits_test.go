package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-wordpiece/internal/server"
	"github.com/example/go-wordpiece/internal/text"
)

// ---------------------------------------------------------------------------
// Request validation and limits
// ---------------------------------------------------------------------------

func TestTokenize_OversizedTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(&stubModel{}, server.WithMaxTextBytes(10))

	bigText := strings.Repeat("x", 11)
	rec := postTokenize(h, `{"text":"`+bigText+`"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}

	var errBody map[string]string

	err := json.NewDecoder(rec.Body).Decode(&errBody)
	if err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	if errBody["error"] == "" {
		t.Error("want non-empty error field")
	}
}

func TestTokenize_TextAtExactLimitIsAccepted(t *testing.T) {
	h := server.NewHandler(&stubModel{}, server.WithMaxTextBytes(5))

	rec := postTokenize(h, `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for exactly-limit text, got %d", rec.Code)
	}
}

func TestTokenize_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	model := &stubModel{onCall: func() { <-release }}
	h := server.NewHandler(model, server.WithRequestTimeout(20*time.Millisecond))

	rec := postTokenize(h, `{"text":"slow"}`)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}

	var errBody map[string]string

	_ = json.NewDecoder(rec.Body).Decode(&errBody)
	if errBody["error"] == "" {
		t.Error("want non-empty error field")
	}
}

func TestTokenize_NoRequestTimeout(t *testing.T) {
	h := server.NewHandler(&stubModel{}, server.WithRequestTimeout(0))

	rec := postTokenize(h, `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 without a deadline, got %d", rec.Code)
	}
}

func TestTokenize_AppliesNormalizationForm(t *testing.T) {
	var got string
	model := &recordingModel{seen: &got}
	h := server.NewHandler(model, server.WithForm(text.FormNFKC))

	rec := postTokenize(h, `{"text":"\ufb01ne"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	if got != "fine" {
		t.Errorf("segmenter saw %q; want NFKC form %q", got, "fine")
	}
}

// ---------------------------------------------------------------------------
// Worker pool / concurrency throttling
// ---------------------------------------------------------------------------

func TestTokenize_ConcurrencyThrottling(t *testing.T) {
	const workers = 2
	const totalRequests = 5

	var (
		mu         sync.Mutex
		peak       int
		current    int32
		releaseAll = make(chan struct{})
	)
	model := &stubModel{
		onCall: func() {
			n := int(atomic.AddInt32(&current, 1))

			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-releaseAll
			atomic.AddInt32(&current, -1)
		},
	}

	h := server.NewHandler(model, server.WithWorkers(workers))

	var wg sync.WaitGroup

	codes := make([]int, totalRequests)
	for i := range totalRequests {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			codes[idx] = postTokenize(h, `{"text":"hi"}`).Code
		}(i)
	}

	// Give goroutines time to enter the segmenter.
	time.Sleep(50 * time.Millisecond)
	close(releaseAll)
	wg.Wait()

	mu.Lock()
	got := peak
	mu.Unlock()

	if got > workers {
		t.Errorf("peak concurrency %d exceeded worker limit %d", got, workers)
	}

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: want 200, got %d", i, code)
		}
	}
}

func TestTokenize_WaiterCancelledWhileThrottled(t *testing.T) {
	release := make(chan struct{})
	model := &stubModel{onCall: func() { <-release }}

	h := server.NewHandler(model, server.WithWorkers(1), server.WithRequestTimeout(time.Minute))

	// First request occupies the single worker slot.
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = postTokenize(h, `{"text":"first"}`)
	}()

	time.Sleep(20 * time.Millisecond)

	// Second request should be blocked waiting for a worker; cancel its context.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tokenize", bytes.NewBufferString(`{"text":"second"}`)).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 when waiter context cancelled, got %d", rec.Code)
	}

	close(release) // unblock the first request
	<-firstDone
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// recordingModel stores the text it was asked to segment.
type recordingModel struct {
	stubModel
	seen *string
}

func (r *recordingModel) TokenizeWords(s string) [][]string {
	*r.seen = s
	return [][]string{{s}}
}

var _ server.Model = (*recordingModel)(nil)
