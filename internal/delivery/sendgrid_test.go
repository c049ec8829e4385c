package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"finbrief/internal/report"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testNewsletter() report.Newsletter {
	return report.Newsletter{
		Title: "Weekly Financial Insights",
		Date:  time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
		HTML:  "<html><body>issue</body></html>",
	}
}

func recipients(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("user%d@example.com", i))
	}
	return out
}

func TestSendBatching(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		var payload mailRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(payload.Personalizations) != 1 {
			t.Fatalf("personalizations = %d", len(payload.Personalizations))
		}
		p := payload.Personalizations[0]
		if len(p.To) != 1 || p.To[0].Email != "news@example.com" {
			t.Errorf("to 应指向发件人, 实际 %+v", p.To)
		}
		if payload.Subject != "Weekly Financial Insights - 2026-08-31" {
			t.Errorf("subject = %q", payload.Subject)
		}
		batchSizes = append(batchSizes, len(p.BCC))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(Options{
		APIKey:    "key",
		BaseURL:   srv.URL,
		Sender:    "news@example.com",
		BatchSize: 100,
		Timeout:   time.Second,
	}, noopLogger())

	rep, err := s.Send(context.Background(), testNewsletter(), recipients(250))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if rep.Batches != 3 || rep.Delivered != 250 {
		t.Fatalf("report = %+v, want 3 batches and 250 delivered", rep)
	}

	want := []int{100, 100, 50}
	for i, size := range want {
		if batchSizes[i] != size {
			t.Fatalf("batch sizes = %v, want %v", batchSizes, want)
		}
	}
}

func TestSendPartialBatchFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(Options{
		APIKey:    "key",
		BaseURL:   srv.URL,
		Sender:    "news@example.com",
		BatchSize: 100,
		Timeout:   time.Second,
	}, noopLogger())

	rep, err := s.Send(context.Background(), testNewsletter(), recipients(250))
	if err != nil {
		t.Fatalf("部分批次失败不应使整体失败: %v", err)
	}
	if rep.Delivered != 150 || rep.FailedRecv != 100 {
		t.Fatalf("report = %+v, want 150 delivered and 100 failed", rep)
	}
	if !rep.Succeeded() {
		t.Fatal("one successful batch should count as success")
	}
}

func TestSendAllBatchesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSender(Options{
		APIKey:    "key",
		BaseURL:   srv.URL,
		Sender:    "news@example.com",
		BatchSize: 100,
		Timeout:   time.Second,
	}, noopLogger())

	if _, err := s.Send(context.Background(), testNewsletter(), recipients(150)); err == nil {
		t.Fatal("全部批次失败应返回错误")
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	s := NewSender(Options{APIKey: "key", Sender: "news@example.com"}, noopLogger())

	if _, err := s.Send(context.Background(), testNewsletter(), nil); err == nil {
		t.Fatal("empty recipient list should be rejected")
	}

	empty := testNewsletter()
	empty.HTML = ""
	if _, err := s.Send(context.Background(), empty, recipients(1)); err == nil {
		t.Fatal("empty newsletter should be rejected")
	}

	unconfigured := NewSender(Options{}, noopLogger())
	if _, err := unconfigured.Send(context.Background(), testNewsletter(), recipients(1)); err == nil {
		t.Fatal("missing credentials should be rejected")
	}
}
